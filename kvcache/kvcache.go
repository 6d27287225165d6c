// Package kvcache is the store-side front of the cache: it owns a fixed
// number of cache sets and routes every key to exactly one of them by
// hashing it. Sets never coordinate; each evicts on its own.
package kvcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/IvanBrykalov/kvstore/cacheset"
	"github.com/IvanBrykalov/kvstore/internal/util"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("kvcache: no Loader provided")

// MetricsProvider hands out the metrics sink for one cache set.
// metrics/prom.Adapter implements it.
type MetricsProvider interface {
	ForSet(set int) cacheset.Metrics
}

// Options configures a Store. Zero values are safe; defaults are applied in New:
//   - Sets <= 0       => util.ReasonableSetCount()
//   - nil Logger      => zap.NewNop()
//   - nil Metrics     => cacheset.NoopMetrics for every set
//   - zero key/value limits => cacheset defaults
type Options struct {
	// Sets is the number of cache sets; ElemPerSet the capacity of each.
	Sets       int
	ElemPerSet int

	MaxKeyLen   int
	MaxValueLen int

	// Loader fetches a value on miss. Used by GetOrLoad.
	Loader func(ctx context.Context, key []byte) ([]byte, error)

	Metrics MetricsProvider
	Logger  *zap.Logger
}

// Store routes keys onto cache sets. All methods are safe for concurrent use.
type Store struct {
	sets   []*cacheset.CacheSet
	loader func(ctx context.Context, key []byte) ([]byte, error)
	log    *zap.Logger

	// coalesces concurrent loads of the same key in GetOrLoad.
	sf singleflight.Group
}

// New builds a Store with opt.Sets empty cache sets of opt.ElemPerSet
// entries each. Set construction errors (cacheset.ErrInvalidConfiguration)
// are returned unchanged.
func New(opt Options) (*Store, error) {
	if opt.Sets <= 0 {
		opt.Sets = util.ReasonableSetCount()
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	log := opt.Logger.Named("kvcache")

	sets := make([]*cacheset.CacheSet, opt.Sets)
	for i := range sets {
		so := cacheset.Options{
			MaxKeyLen:   opt.MaxKeyLen,
			MaxValueLen: opt.MaxValueLen,
			Logger:      log.With(zap.Int("set", i)),
		}
		if opt.Metrics != nil {
			so.Metrics = opt.Metrics.ForSet(i)
		}
		s, err := cacheset.New(opt.ElemPerSet, so)
		if err != nil {
			return nil, fmt.Errorf("kvcache: set %d: %w", i, err)
		}
		sets[i] = s
	}
	log.Debug("store ready", zap.Int("sets", opt.Sets), zap.Int("elem_per_set", opt.ElemPerSet))

	return &Store{
		sets:   sets,
		loader: opt.Loader,
		log:    log,
	}, nil
}

// SetFor returns the index of the cache set key routes to.
func (s *Store) SetFor(key []byte) int {
	return util.SetIndex(util.Fnv64a(key), len(s.sets))
}

// Set returns the i-th cache set.
func (s *Store) Set(i int) *cacheset.CacheSet { return s.sets[i] }

// NumSets returns the number of cache sets.
func (s *Store) NumSets() int { return len(s.sets) }

// Get returns a copy of the value for key from its cache set.
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.route(key).Get(key)
}

// Put stores a copy of value under key in its cache set.
func (s *Store) Put(key, value []byte) error {
	return s.route(key).Put(key, value)
}

// Delete removes key from its cache set.
func (s *Store) Delete(key []byte) error {
	return s.route(key).Delete(key)
}

// Clear empties every cache set. Sets are cleared one after another, so a
// concurrent Put may land in a set that was already cleared.
func (s *Store) Clear() {
	for _, cs := range s.sets {
		cs.Clear()
	}
}

// Len returns the total number of resident entries across all sets.
func (s *Store) Len() int {
	total := 0
	for _, cs := range s.sets {
		total += cs.Len()
	}
	return total
}

// Stats sums the per-set statistics.
func (s *Store) Stats() cacheset.Stats {
	var total cacheset.Stats
	for _, cs := range s.sets {
		st := cs.Stats()
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Evictions += st.Evictions
		total.Entries += st.Entries
		total.Bytes += st.Bytes
	}
	return total
}

// GetOrLoad returns the value for key; on miss it loads via Options.Loader
// and stores the result. Concurrent loads of the same key share one Loader
// call. A follower whose ctx ends first returns ctx.Err() while the load
// carries on for the others.
func (s *Store) GetOrLoad(ctx context.Context, key []byte) ([]byte, error) {
	v, err := s.Get(key)
	if err == nil || !errors.Is(err, cacheset.ErrNotFound) {
		return v, err
	}
	if s.loader == nil {
		return nil, ErrNoLoader
	}

	key = bytes.Clone(key)
	ch := s.sf.DoChan(string(key), func() (any, error) {
		// double-check after joining the flight
		if v, err := s.Get(key); err == nil {
			return v, nil
		}
		v, err := s.loader(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := s.Put(key, v); err != nil {
			s.log.Warn("loaded value not cached", zap.ByteString("key", key), zap.Error(err))
			return nil, err
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// every waiter gets its own copy
		return bytes.Clone(res.Val.([]byte)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) route(key []byte) *cacheset.CacheSet {
	return s.sets[s.SetFor(key)]
}
