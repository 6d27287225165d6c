package kvcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/kvstore/cacheset"
	"github.com/IvanBrykalov/kvstore/internal/util"
)

func newStore(t *testing.T, opt Options) *Store {
	t.Helper()
	s, err := New(opt)
	require.NoError(t, err)
	return s
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{ElemPerSet: 4})
	assert.Equal(t, util.ReasonableSetCount(), s.NumSets())
	assert.Equal(t, 0, s.Len())
}

func TestNew_InvalidSetCapacity(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Sets: 2, ElemPerSet: 1})
	require.ErrorIs(t, err, cacheset.ErrInvalidConfiguration)
}

func TestStore_PutGetDelete(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{Sets: 4, ElemPerSet: 16})
	for i := 0; i < 32; i++ {
		k := []byte("k" + strconv.Itoa(i))
		require.NoError(t, s.Put(k, []byte("v"+strconv.Itoa(i))))
	}
	assert.Equal(t, 32, s.Len())

	v, err := s.Get([]byte("k7"))
	require.NoError(t, err)
	assert.Equal(t, "v7", string(v))

	require.NoError(t, s.Delete([]byte("k7")))
	_, err = s.Get([]byte("k7"))
	assert.ErrorIs(t, err, cacheset.ErrNotFound)
	assert.ErrorIs(t, s.Delete([]byte("k7")), cacheset.ErrNotFound)

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

// Keys land in the set chosen by their hash, and only there.
func TestStore_Routing(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{Sets: 8, ElemPerSet: 64})
	for i := 0; i < 100; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		require.NoError(t, s.Put(k, []byte("v")))

		idx := s.SetFor(k)
		assert.Equal(t, util.SetIndex(util.Fnv64a(k), 8), idx)
		for j := 0; j < s.NumSets(); j++ {
			assert.Equal(t, j == idx, s.Set(j).Contains(k), "key %s in set %d", k, j)
		}
		h, err := s.Set(idx).Hash(k)
		require.NoError(t, err)
		assert.Equal(t, util.Fnv64a(k), h)
	}
}

// A full set evicts on its own; other sets keep their entries.
func TestStore_IndependentEviction(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{Sets: 2, ElemPerSet: 2})

	var inZero, inOne [][]byte
	for i := 0; len(inZero) < 4 || len(inOne) < 1; i++ {
		k := []byte("k" + strconv.Itoa(i))
		if s.SetFor(k) == 0 {
			inZero = append(inZero, k)
		} else {
			inOne = append(inOne, k)
		}
	}

	require.NoError(t, s.Put(inOne[0], []byte("keep")))
	for _, k := range inZero {
		require.NoError(t, s.Put(k, []byte("v")))
	}

	assert.Equal(t, 2, s.Set(0).Len())
	v, err := s.Get(inOne[0])
	require.NoError(t, err)
	assert.Equal(t, "keep", string(v))
	assert.Equal(t, uint64(2), s.Stats().Evictions)
}

func TestStore_LimitsPropagate(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{Sets: 2, ElemPerSet: 2, MaxKeyLen: 3, MaxValueLen: 3})
	assert.ErrorIs(t, s.Put([]byte("long"), []byte("v")), cacheset.ErrKeyTooLong)
	assert.ErrorIs(t, s.Put([]byte("k"), []byte("long")), cacheset.ErrValueTooLong)
	_, err := s.Get([]byte("long"))
	assert.ErrorIs(t, err, cacheset.ErrKeyTooLong)
	assert.Equal(t, 0, s.Len())
}

func TestGetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{Sets: 1, ElemPerSet: 2})
	_, err := s.GetOrLoad(context.Background(), []byte("k"))
	assert.ErrorIs(t, err, ErrNoLoader)

	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	v, err := s.GetOrLoad(context.Background(), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

// Concurrent GetOrLoad calls for the same key trigger the Loader at most
// once; later calls are cache hits.
func TestGetOrLoad_Singleflight(t *testing.T) {
	t.Parallel()

	var calls int64
	s := newStore(t, Options{
		Sets:       4,
		ElemPerSet: 16,
		Loader: func(_ context.Context, k []byte) ([]byte, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return []byte("v:" + string(k)), nil
		},
	})

	const N = 64
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := s.GetOrLoad(ctx, []byte("k"))
			if err != nil {
				return err
			}
			if string(v) != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	v, err := s.GetOrLoad(context.Background(), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v:k", string(v))
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestGetOrLoad_LoaderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	s := newStore(t, Options{
		Sets:       1,
		ElemPerSet: 2,
		Loader: func(context.Context, []byte) ([]byte, error) {
			return nil, boom
		},
	})
	_, err := s.GetOrLoad(context.Background(), []byte("k"))
	require.ErrorIs(t, err, boom)
	assert.False(t, s.Set(0).Contains([]byte("k")))
}

func TestGetOrLoad_TooLongValueNotCached(t *testing.T) {
	t.Parallel()

	s := newStore(t, Options{
		Sets:        1,
		ElemPerSet:  2,
		MaxValueLen: 2,
		Loader: func(context.Context, []byte) ([]byte, error) {
			return []byte("too long"), nil
		},
	})
	_, err := s.GetOrLoad(context.Background(), []byte("k"))
	assert.ErrorIs(t, err, cacheset.ErrValueTooLong)
	assert.Equal(t, 0, s.Len())
}

// A follower whose context is cancelled stops waiting; the leader's load
// completes and is cached.
func TestGetOrLoad_FollowerCancel(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	s := newStore(t, Options{
		Sets:       1,
		ElemPerSet: 2,
		Loader: func(context.Context, []byte) ([]byte, error) {
			close(started)
			<-release
			return []byte("v"), nil
		},
	})

	leader := make(chan error, 1)
	go func() {
		_, err := s.GetOrLoad(context.Background(), []byte("k"))
		leader <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.GetOrLoad(ctx, []byte("k"))
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-leader)
	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}
