// Package genome stores an organism's fixed-length bit string and decodes
// unsigned integers from wrap-around virtual ranges of it.
package genome

import (
	"math/rand"
)

// View is the read-only surface gene decoders and the expression engine use.
type View interface {
	Len() int
	BitAt(index int) uint8
}

// Genome is a fixed-length sequence of bits. Every index is wrapped before
// use, so no read or write can fall outside the sequence.
type Genome struct {
	bits []uint8
}

// New returns an all-zero genome of size bits.
func New(size int) *Genome {
	if size <= 0 {
		size = 1
	}
	return &Genome{bits: make([]uint8, size)}
}

// Random returns a genome of size bits drawn from rng, one draw per bit in
// address order.
func Random(size int, rng *rand.Rand) *Genome {
	g := New(size)
	for i := range g.bits {
		g.bits[i] = uint8(rng.Intn(2))
	}
	return g
}

// FromBits copies bits (any non-zero value is a 1).
func FromBits(bits []uint8) *Genome {
	g := New(len(bits))
	for i, b := range bits {
		if b != 0 {
			g.bits[i] = 1
		}
	}
	return g
}

func (g *Genome) Len() int { return len(g.bits) }

// BitAt returns the bit at the wrapped virtual index.
func (g *Genome) BitAt(index int) uint8 {
	return g.bits[Wrap(index, len(g.bits))]
}

// SetBit writes the bit at the wrapped virtual index.
func (g *Genome) SetBit(index int, v uint8) {
	if v != 0 {
		v = 1
	}
	g.bits[Wrap(index, len(g.bits))] = v
}

// Bits returns a copy of the underlying sequence.
func (g *Genome) Bits() []uint8 {
	out := make([]uint8, len(g.bits))
	copy(out, g.bits)
	return out
}

// Clone returns an independent copy.
func (g *Genome) Clone() *Genome {
	return &Genome{bits: g.Bits()}
}

// Unsigned reads size consecutive virtual positions starting at start. The
// lowest address contributes the least significant bit. Widths above 64 bits
// keep only the low 64 positions.
func Unsigned(v View, start, size int) uint64 {
	n := v.Len()
	if n <= 0 {
		return 0
	}
	// Wrapped once up front so start+i stays far from overflow.
	start = Wrap(start, n)
	var r uint64
	place := uint64(1)
	for i := 0; i < size; i++ {
		if v.BitAt(Wrap(start+i, n)) == 1 {
			r += place
		}
		place *= 2
	}
	return r
}

// Unsigned is the method form of the package-level Unsigned.
func (g *Genome) Unsigned(start, size int) uint64 {
	return Unsigned(g, start, size)
}

// Swap exchanges size bits between a (from addrA) and b (from addrB). Both
// ranges wrap independently; a and b may be the same genome.
func Swap(a, b *Genome, addrA, addrB, size int) {
	if a == nil || b == nil || size <= 0 {
		return
	}
	addrA, addrB = Wrap(addrA, a.Len()), Wrap(addrB, b.Len())
	bufA := make([]uint8, size)
	bufB := make([]uint8, size)
	for i := 0; i < size; i++ {
		bufA[i] = a.BitAt(addrA + i)
		bufB[i] = b.BitAt(addrB + i)
	}
	for i := 0; i < size; i++ {
		a.SetBit(addrA+i, bufB[i])
		b.SetBit(addrB+i, bufA[i])
	}
}
