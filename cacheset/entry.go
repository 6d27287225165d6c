package cacheset

import "fmt"

// slotID addresses an entry in the arena. It is the only handle the index
// and the ring share, so neither holds a pointer into the other.
type slotID int32

const noSlot slotID = -1

// entry is one resident key/value pair.
type entry struct {
	key   string // immutable copy of the caller's key
	value []byte // owned; replaced wholesale on update
	hash  uint64 // identity for the owning store, not consulted here

	// referenced is set on every hit and cleared by the CLOCK hand.
	referenced bool
	live       bool
}

func (e *entry) size() int64 { return int64(len(e.key) + len(e.value)) }

// arena is a fixed pool of entry slots sized to the set capacity.
// Freed slots go on a LIFO free list and are handed out again by alloc.
type arena struct {
	entries []entry
	free    []slotID
}

func newArena(capacity int) arena {
	a := arena{
		entries: make([]entry, capacity),
		free:    make([]slotID, 0, capacity),
	}
	a.reset()
	return a
}

// alloc hands out a free slot. An empty free list while the set still has
// room is a bookkeeping defect and reported as ErrAllocationFailure.
func (a *arena) alloc() (slotID, error) {
	n := len(a.free)
	if n == 0 {
		return noSlot, fmt.Errorf("%w: no free slot among %d", ErrAllocationFailure, len(a.entries))
	}
	id := a.free[n-1]
	a.free = a.free[:n-1]
	a.entries[id].live = true
	return id, nil
}

// release zeroes the slot so its key and value can be collected.
func (a *arena) release(id slotID) {
	a.entries[id] = entry{}
	a.free = append(a.free, id)
}

func (a *arena) at(id slotID) *entry { return &a.entries[id] }

// reset frees every slot. Slot 0 is handed out first.
func (a *arena) reset() {
	clear(a.entries)
	a.free = a.free[:0]
	for i := len(a.entries) - 1; i >= 0; i-- {
		a.free = append(a.free, slotID(i))
	}
}
