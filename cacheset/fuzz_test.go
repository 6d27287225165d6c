package cacheset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// Fuzz Put/Get/Delete under arbitrary byte inputs. Oversized inputs must be
// rejected without side effects; everything else round-trips.
func FuzzCacheSet_PutGetDelete(f *testing.F) {
	f.Add([]byte(""), []byte(""))
	f.Add([]byte("a"), []byte("1"))
	f.Add([]byte("αβγ"), []byte("δ"))
	f.Add([]byte(strings.Repeat("k", 40)), []byte("v"))
	f.Add([]byte("long"), []byte(strings.Repeat("x", 1024)))

	f.Fuzz(func(t *testing.T, k, v []byte) {
		s, err := New(4, Options{MaxKeyLen: 32, MaxValueLen: 512})
		if err != nil {
			t.Fatal(err)
		}

		err = s.Put(k, v)
		switch {
		case len(k) > 32:
			if !errors.Is(err, ErrKeyTooLong) || s.Len() != 0 {
				t.Fatalf("long key: err=%v len=%d", err, s.Len())
			}
			return
		case len(v) > 512:
			if !errors.Is(err, ErrValueTooLong) || s.Len() != 0 {
				t.Fatalf("long value: err=%v len=%d", err, s.Len())
			}
			return
		case err != nil:
			t.Fatalf("Put: %v", err)
		}

		got, err := s.Get(k)
		if err != nil || !bytes.Equal(got, v) {
			t.Fatalf("after Put/Get: want %q, got %q err=%v", v, got, err)
		}
		if err := s.Delete(k); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(k); !errors.Is(err, ErrNotFound) {
			t.Fatalf("key must be absent after Delete, err=%v", err)
		}
		if err := s.checkInvariants(); err != nil {
			t.Fatal(err)
		}
	})
}
