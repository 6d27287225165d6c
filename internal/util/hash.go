// Package util contains internal helpers shared by the cache set and the
// store that routes keys onto sets (hashing, set selection, padding).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// Fnv64a returns the 64-bit FNV-1a hash of key.
// The store uses it to pick a cache set and the set keeps it as the entry
// identity, so both sides must agree on this exact function.
func Fnv64a(key []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range key {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

// Fnv64aString is Fnv64a for string keys without the []byte conversion.
func Fnv64aString(key string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= fnvPrime64
	}
	return h
}
