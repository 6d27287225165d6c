package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is 64 on every platform we care about.
const CacheLineSize = 64

// CacheLinePad separates the lock-guarded part of a struct from counters
// that are bumped atomically by every reader.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedAtomicUint64 is an atomic counter occupying a full cache line, so
// hit/miss/eviction counters of one set never share a line.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

var _ [CacheLineSize - int(unsafe.Sizeof(PaddedAtomicUint64{}))]byte
