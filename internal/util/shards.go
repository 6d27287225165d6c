package util

import "runtime"

// maxSets caps the automatic set count.
const maxSets = 256

// ReasonableSetCount picks a default number of cache sets from CPU
// parallelism: nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableSetCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > maxSets {
		n = maxSets
	}
	return n
}

// SetIndex maps a key hash onto one of n sets.
// Power-of-two counts take the mask path; other counts fall back to modulo.
func SetIndex(hash uint64, n int) int {
	if n <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(n)) {
		return int(hash & uint64(n-1))
	}
	return int(hash % uint64(n))
}
