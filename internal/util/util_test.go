package util

import "testing"

func TestFnv64a_KnownVectors(t *testing.T) {
	t.Parallel()

	// Reference values from the FNV test suite.
	cases := []struct {
		in   string
		want uint64
	}{
		{"", 0xcbf29ce484222325},
		{"a", 0xaf63dc4c8601ec8c},
		{"foobar", 0x85944171f73967e8},
	}
	for _, c := range cases {
		if got := Fnv64a([]byte(c.in)); got != c.want {
			t.Fatalf("Fnv64a(%q) = %#x, want %#x", c.in, got, c.want)
		}
		if got := Fnv64aString(c.in); got != c.want {
			t.Fatalf("Fnv64aString(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128, 1<<63 + 1: 1 << 63}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Fatalf("NextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSetIndex_InRange(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 8, 10, 64} {
		for h := uint64(0); h < 1000; h += 7 {
			idx := SetIndex(h*0x9e3779b97f4a7c15, n)
			if idx < 0 || idx >= n {
				t.Fatalf("SetIndex out of range: n=%d idx=%d", n, idx)
			}
		}
	}
}

func TestReasonableSetCount(t *testing.T) {
	t.Parallel()

	n := ReasonableSetCount()
	if n < 1 || n > maxSets || !IsPowerOfTwo(uint64(n)) {
		t.Fatalf("unexpected set count %d", n)
	}
}
