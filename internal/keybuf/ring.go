// Package keybuf is the fixed-size FIFO between the scanner and the link.
package keybuf

// Capacity is the number of slots in the ring.
const Capacity = 10

// Ring is a circular character queue. There is no full check on Push: a
// producer that outruns the consumer silently overwrites the oldest unread
// character and nothing reports it.
//
// Pop returns 0 for an empty ring, so a pushed NUL cannot be told apart from
// an empty slot.
type Ring struct {
	buf  [Capacity]byte
	head int
	tail int
	n    int
}

// Push writes ch at the tail and advances it. Free slots are kept zeroed.
func (r *Ring) Push(ch byte) {
	r.buf[r.tail] = ch
	r.tail = (r.tail + 1) % Capacity
	if r.n == Capacity {
		// tail lapped head: the oldest entry was just overwritten
		r.head = r.tail
		return
	}
	r.n++
	if r.n < Capacity {
		r.buf[r.tail] = 0
	}
}

// Pop removes and returns the character at the head, or 0 when empty.
func (r *Ring) Pop() byte {
	if r.n == 0 {
		return 0
	}
	ch := r.buf[r.head]
	r.buf[r.head] = 0
	r.head = (r.head + 1) % Capacity
	r.n--
	return ch
}

// Len returns the number of unread characters.
func (r *Ring) Len() int { return r.n }

// Empty reports whether there is nothing to read.
func (r *Ring) Empty() bool { return r.n == 0 }

// Reset empties the ring.
func (r *Ring) Reset() {
	*r = Ring{}
}
