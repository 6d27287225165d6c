package cacheset

import (
	"bytes"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/kvstore/internal/util"
)

// state is everything the guard protects. It is only reachable through
// CacheSet.write and CacheSet.read.
type state struct {
	index map[string]slotID
	ring  ring
	slots arena
	count int   // resident entries; equals len(index) and ring.len()
	bytes int64 // key+value bytes held by resident entries
}

// CacheSet is one fixed-capacity shard of the store's cache.
// All methods are safe for concurrent use by multiple goroutines.
type CacheSet struct {
	// ---- guarded by mu ----
	mu sync.RWMutex
	st state

	capacity int
	opt      Options
	log      *zap.Logger

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// Stats is a point-in-time snapshot of a set.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64 // CLOCK victims only; deletes are not counted
	Entries   int
	Bytes     int64
}

// New returns an empty CacheSet holding at most capacity entries.
// It fails with ErrInvalidConfiguration if capacity < MinimumCapacity or a
// length limit is negative.
func New(capacity int, opt Options) (*CacheSet, error) {
	if capacity < MinimumCapacity {
		return nil, capacityError(capacity)
	}
	opt = opt.withDefaults()
	if opt.MaxKeyLen <= 0 || opt.MaxValueLen <= 0 {
		return nil, fmt.Errorf("%w: key and value limits must be positive (got %d, %d)",
			ErrInvalidConfiguration, opt.MaxKeyLen, opt.MaxValueLen)
	}
	return &CacheSet{
		st: state{
			index: make(map[string]slotID, capacity),
			ring:  newRing(capacity),
			slots: newArena(capacity),
		},
		capacity: capacity,
		opt:      opt,
		log:      opt.Logger.Named("cacheset"),
	}, nil
}

// write runs fn with the guard held exclusively. Every mutating operation
// goes through here.
func (s *CacheSet) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.st)
}

// read runs fn with the guard held in shared mode. fn must not mutate st.
func (s *CacheSet) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.st)
}

// Get returns a copy of the value stored under key and marks the entry as
// recently used. It takes the guard exclusively because of that write.
func (s *CacheSet) Get(key []byte) ([]byte, error) {
	if err := s.checkKey(key); err != nil {
		return nil, err
	}
	var out []byte
	err := s.write(func(st *state) error {
		id, ok := st.index[string(key)]
		if !ok {
			s.misses.Add(1)
			s.opt.Metrics.Miss()
			return ErrNotFound
		}
		e := st.slots.at(id)
		e.referenced = true
		out = bytes.Clone(e.value)
		s.hits.Add(1)
		s.opt.Metrics.Hit()
		return nil
	})
	return out, err
}

// Put stores a copy of value under key.
// An existing entry is updated in place: its ring position and reference
// bit are left alone. A new entry evicts one victim first when the set is
// full and starts unreferenced at the tail of the ring.
// On error the set is left as it was.
func (s *CacheSet) Put(key, value []byte) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	if len(value) > s.opt.MaxValueLen {
		return valueLenError(len(value), s.opt.MaxValueLen)
	}
	return s.write(func(st *state) error {
		if id, ok := st.index[string(key)]; ok {
			e := st.slots.at(id)
			st.bytes += int64(len(value) - len(e.value))
			e.value = bytes.Clone(value)
			s.opt.Metrics.Size(st.count, st.bytes)
			return nil
		}

		if st.count >= s.capacity {
			if err := s.evictLocked(st); err != nil {
				return err
			}
		}

		id, err := st.slots.alloc()
		if err != nil {
			s.log.Error("slot arena exhausted below capacity",
				zap.Int("resident", st.count), zap.Int("capacity", s.capacity), zap.Error(err))
			return err
		}
		e := st.slots.at(id)
		e.key = string(key)
		e.value = bytes.Clone(value)
		e.hash = util.Fnv64a(key)
		e.referenced = false

		st.index[e.key] = id
		st.ring.pushTail(id)
		st.count++
		st.bytes += e.size()
		s.opt.Metrics.Size(st.count, st.bytes)
		return nil
	})
}

// Delete removes key from the set. Deleting an absent key returns
// ErrNotFound and is not otherwise an error condition.
func (s *CacheSet) Delete(key []byte) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		id, ok := st.index[string(key)]
		if !ok {
			return ErrNotFound
		}
		k, v := s.removeLocked(st, id)
		s.opt.Metrics.Evict(EvictDelete)
		s.opt.Metrics.Size(st.count, st.bytes)
		if cb := s.opt.OnEvict; cb != nil {
			cb(k, v, EvictDelete)
		}
		return nil
	})
}

// Clear drops every resident entry.
func (s *CacheSet) Clear() {
	_ = s.write(func(st *state) error {
		clear(st.index)
		st.ring.reset()
		st.slots.reset()
		st.count = 0
		st.bytes = 0
		s.opt.Metrics.Size(0, 0)
		return nil
	})
}

// Len returns the number of resident entries.
func (s *CacheSet) Len() int {
	var n int
	s.read(func(st *state) { n = st.count })
	return n
}

// Cap returns the configured capacity.
func (s *CacheSet) Cap() int { return s.capacity }

// Contains reports whether key is resident without touching its reference bit.
func (s *CacheSet) Contains(key []byte) bool {
	var ok bool
	s.read(func(st *state) { _, ok = st.index[string(key)] })
	return ok
}

// Hash returns the identity hash recorded when key was inserted.
func (s *CacheSet) Hash(key []byte) (uint64, error) {
	var (
		h  uint64
		ok bool
	)
	s.read(func(st *state) {
		var id slotID
		if id, ok = st.index[string(key)]; ok {
			h = st.slots.at(id).hash
		}
	})
	if !ok {
		return 0, ErrNotFound
	}
	return h, nil
}

// Keys returns copies of the resident keys in ring order, starting at the
// CLOCK hand (next eviction candidate first).
func (s *CacheSet) Keys() [][]byte {
	var keys [][]byte
	s.read(func(st *state) {
		keys = make([][]byte, 0, st.count)
		for id := range st.ring.all() {
			keys = append(keys, []byte(st.slots.at(id).key))
		}
	})
	return keys
}

// Stats returns counters and the current size.
func (s *CacheSet) Stats() Stats {
	st := Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evicts.Load(),
	}
	s.read(func(cs *state) {
		st.Entries = cs.count
		st.Bytes = cs.bytes
	})
	return st
}

// -------------------- internals (mu held) --------------------

func (s *CacheSet) checkKey(key []byte) error {
	if len(key) > s.opt.MaxKeyLen {
		return keyLenError(len(key), s.opt.MaxKeyLen)
	}
	return nil
}

// removeLocked detaches id from index and ring, frees its slot and hands
// back the key and value it held.
func (s *CacheSet) removeLocked(st *state, id slotID) (key, value []byte) {
	e := st.slots.at(id)
	key, value = []byte(e.key), e.value
	delete(st.index, e.key)
	st.ring.remove(id)
	st.bytes -= e.size()
	st.count--
	st.slots.release(id)
	return key, value
}
