// Package history is an organism's fixed-length memory of past bits.
package history

import "math/rand"

// DefaultSize is the capacity used when none is configured.
const DefaultSize = 32

// Bits is a fixed-capacity ring of bits, oldest first. Shift drops the
// oldest bit and appends at the tail without reallocating, so Len never
// changes.
type Bits struct {
	buf  []uint8
	head int
}

func New(size int) *Bits {
	if size <= 0 {
		size = DefaultSize
	}
	return &Bits{buf: make([]uint8, size)}
}

// Random fills a new history from rng, oldest slot first.
func Random(size int, rng *rand.Rand) *Bits {
	h := New(size)
	for i := range h.buf {
		h.buf[i] = uint8(rng.Intn(2))
	}
	return h
}

// FromSlice builds a history holding bits, oldest first.
func FromSlice(bits []uint8) *Bits {
	h := New(len(bits))
	for i, b := range bits {
		if b != 0 {
			h.buf[i] = 1
		}
	}
	return h
}

func (h *Bits) Len() int { return len(h.buf) }

// At returns the i-th bit counting from the oldest.
func (h *Bits) At(i int) uint8 {
	n := len(h.buf)
	return h.buf[(h.head+((i%n)+n)%n)%n]
}

// Shift drops the oldest bit and appends b as the newest.
func (h *Bits) Shift(b uint8) {
	if b != 0 {
		b = 1
	}
	h.buf[h.head] = b
	h.head = (h.head + 1) % len(h.buf)
}

// Slice returns the bits oldest first.
func (h *Bits) Slice() []uint8 {
	out := make([]uint8, len(h.buf))
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// Uint reads the history as an unsigned integer with the newest bit least
// significant. Only the newest 64 bits contribute.
func (h *Bits) Uint() uint64 {
	var r uint64
	place := uint64(1)
	for i := len(h.buf) - 1; i >= 0; i-- {
		if h.At(i) == 1 {
			r += place
		}
		place *= 2
	}
	return r
}
