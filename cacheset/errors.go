package cacheset

import (
	"errors"
	"fmt"
)

type constError string

func (e constError) Error() string { return string(e) }

// Errors returned by CacheSet operations. Call sites wrap them with detail,
// so compare with errors.Is.
const (
	// ErrInvalidConfiguration is returned by New for a capacity below
	// MinimumCapacity or non-positive length limits.
	ErrInvalidConfiguration = constError("cacheset: invalid configuration")
	// ErrKeyTooLong rejects a key longer than Options.MaxKeyLen.
	ErrKeyTooLong = constError("cacheset: key too long")
	// ErrValueTooLong rejects a value longer than Options.MaxValueLen.
	ErrValueTooLong = constError("cacheset: value too long")
	// ErrNotFound is the normal outcome of Get or Delete on an absent key.
	ErrNotFound = constError("cacheset: key not found")
	// ErrAllocationFailure means no slot could be acquired for a new entry.
	// The caller decides whether to retry.
	ErrAllocationFailure = constError("cacheset: entry allocation failed")
	// ErrEvictionFailure means the eviction ring disagrees with the resident
	// count. It indicates a defect and is never expected in normal operation.
	ErrEvictionFailure = constError("cacheset: eviction failed")
)

// IsRetryable reports whether err is a transient failure worth retrying.
// Only allocation failures qualify; validation, lookup and invariant errors
// are permanent.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAllocationFailure)
}

func capacityError(capacity int) error {
	return fmt.Errorf("%w: capacity must be >=%d but %d was requested",
		ErrInvalidConfiguration, MinimumCapacity, capacity)
}

func keyLenError(n, limit int) error {
	return fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLong, n, limit)
}

func valueLenError(n, limit int) error {
	return fmt.Errorf("%w: %d bytes (max %d)", ErrValueTooLong, n, limit)
}
