package cacheset

import "iter"

// ring is the CLOCK traversal order: a circular doubly linked list over
// slot ids. head is the hand; the element before it is the tail, where new
// entries are inserted. Links live in parallel arrays indexed by slot, and
// next[id] == noSlot means id is not linked.
type ring struct {
	next, prev []slotID
	head       slotID
	n          int
}

func newRing(capacity int) ring {
	r := ring{
		next: make([]slotID, capacity),
		prev: make([]slotID, capacity),
	}
	r.reset()
	return r
}

func (r *ring) len() int { return r.n }

// hand returns the slot the CLOCK hand points at, or noSlot if empty.
func (r *ring) hand() slotID { return r.head }

func (r *ring) linked(id slotID) bool { return r.next[id] != noSlot }

// pushTail links id just behind the hand (the most-recently-added end).
func (r *ring) pushTail(id slotID) {
	if r.head == noSlot {
		r.next[id], r.prev[id] = id, id
		r.head = id
		r.n = 1
		return
	}
	tail := r.prev[r.head]
	r.next[tail] = id
	r.prev[id] = tail
	r.next[id] = r.head
	r.prev[r.head] = id
	r.n++
}

// advance moves the hand one step. In a circular list this is the same as
// moving the current head to the tail.
func (r *ring) advance() {
	if r.head != noSlot {
		r.head = r.next[r.head]
	}
}

// remove unlinks id. The hand moves on if it pointed at id.
func (r *ring) remove(id slotID) {
	if !r.linked(id) {
		return
	}
	if r.n == 1 {
		r.head = noSlot
	} else {
		p, nx := r.prev[id], r.next[id]
		r.next[p] = nx
		r.prev[nx] = p
		if r.head == id {
			r.head = nx
		}
	}
	r.next[id], r.prev[id] = noSlot, noSlot
	r.n--
}

func (r *ring) reset() {
	for i := range r.next {
		r.next[i], r.prev[i] = noSlot, noSlot
	}
	r.head = noSlot
	r.n = 0
}

// all yields slot ids in hand order. The ring must not change while iterating.
func (r *ring) all() iter.Seq[slotID] {
	return func(yield func(slotID) bool) {
		if r.head == noSlot {
			return
		}
		id := r.head
		for range r.n {
			if !yield(id) {
				return
			}
			id = r.next[id]
		}
	}
}
