// Package cacheset implements one cache set (shard) of the key-value
// store's server-side cache: a fixed-capacity, memory-only map from byte
// keys to byte values that evicts with CLOCK (second chance) when full.
//
// Design
//
//   - Index: map[string]slotID for O(1) lookups.
//
//   - Eviction ring: circular list of slot ids. The head is the CLOCK hand,
//     new entries are linked at the tail. An entry is either in both the
//     index and the ring or in neither.
//
//   - Slots: entries live in a fixed arena sized to the capacity. The index
//     and the ring only exchange slot ids, never pointers.
//
//   - Guard: a sync.RWMutex. Get, Put, Delete and Clear take it exclusively
//     (Get writes the reference bit); Len, Contains, Keys and Stats share it.
//
//   - Ownership: keys and values are copied on the way in and on the way
//     out, so callers never alias cache memory.
//
// # CLOCK
//
// Get sets the entry's reference bit. When Put needs room, the hand walks
// the ring: a referenced entry has its bit cleared and is passed over
// (which moves it to the tail); the first unreferenced entry is evicted.
// Updating an existing key does not touch its bit or ring position.
//
// Basic usage
//
//	s, err := cacheset.New(1024, cacheset.Options{MaxKeyLen: 256, MaxValueLen: 4096})
//	if err != nil {
//	    return err
//	}
//	_ = s.Put([]byte("a"), []byte("1"))
//	v, err := s.Get([]byte("a"))
//	if errors.Is(err, cacheset.ErrNotFound) {
//	    // miss
//	}
//
// Errors are returned as values and never swallowed; ErrEvictionFailure and
// ErrAllocationFailure signal broken internal bookkeeping and are also
// logged at error level through Options.Logger.
package cacheset
