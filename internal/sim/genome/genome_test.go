package genome

import (
	"math"
	"math/rand"
	"testing"
)

func TestWrap_AlwaysInRange(t *testing.T) {
	sizes := []int{1, 2, 7, 8, 256}
	for _, size := range sizes {
		for index := -3*size - 5; index <= 3*size+5; index++ {
			got := Wrap(index, size)
			if got < 0 || got >= size {
				t.Fatalf("Wrap(%d, %d) = %d out of range", index, size, got)
			}
		}
	}
}

func TestWrap_Cases(t *testing.T) {
	cases := []struct {
		index, size, want int
	}{
		{0, 8, 0},
		{7, 8, 7},
		{8, 8, 0},
		{9, 8, 1},
		{1 << 20, 256, 0},
		{-1, 8, 7},
		{-7, 8, 1},
		{-8, 8, 0},
		{-16, 8, 0},
		{-9, 8, 7},
		{-256, 256, 0},
		{math.MinInt, 8, 0},
		{math.MaxInt, 8, 7},
	}
	for _, c := range cases {
		if got := Wrap(c.index, c.size); got != c.want {
			t.Fatalf("Wrap(%d, %d) = %d want %d", c.index, c.size, got, c.want)
		}
	}
}

func TestWrap_ExtremeIndices(t *testing.T) {
	for _, size := range []int{1, 7, 8, 256, 2304} {
		for _, index := range []int{math.MinInt, math.MinInt + 1, math.MaxInt, math.MaxInt - 1} {
			got := Wrap(index, size)
			if got < 0 || got >= size {
				t.Fatalf("Wrap(%d, %d) = %d out of range", index, size, got)
			}
		}
	}
	// Wrap(i, n) and Wrap(i+n, n) agree even at the bottom of the int range.
	for _, size := range []int{7, 2304} {
		if a, b := Wrap(math.MinInt, size), Wrap(math.MinInt+size, size); a != b {
			t.Fatalf("Wrap(MinInt, %d) = %d, Wrap(MinInt+%d) = %d", size, a, size, b)
		}
	}
}

func TestUnsigned_NearMaxStart(t *testing.T) {
	g := FromBits([]uint8{1, 0, 0, 0, 0, 0, 0, 1})
	// MaxInt wraps to 7 on an 8-bit genome: bits 7,0 = 1,1.
	if got := g.Unsigned(math.MaxInt, 2); got != 3 {
		t.Fatalf("Unsigned(MaxInt,2) = %d want 3", got)
	}
}

func TestSwap_ExtremeAddresses(t *testing.T) {
	a := FromBits([]uint8{1, 1, 1, 1, 1, 1, 1, 1})
	b := New(8)
	// MaxInt is 7 and MinInt is 0 on an 8-bit genome.
	Swap(a, b, math.MaxInt, math.MinInt, 2)
	if got := a.Bits(); got[7] != 0 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("a = %v", got)
	}
	if got := b.Bits(); got[0] != 1 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("b = %v", got)
	}
}

func TestBitAt_Wraps(t *testing.T) {
	g := FromBits([]uint8{1, 0, 0, 1})
	if g.BitAt(-1) != 1 || g.BitAt(4) != 1 || g.BitAt(5) != 0 || g.BitAt(-4) != 1 {
		t.Fatalf("wrapped reads mismatch")
	}
}

func TestUnsigned_LowestAddressIsLeastSignificant(t *testing.T) {
	g := FromBits([]uint8{1, 1, 0, 1, 0, 0, 0, 0})
	if got := g.Unsigned(0, 4); got != 11 {
		t.Fatalf("Unsigned(0,4) = %d want 11", got)
	}
	// Range crossing the end wraps to the start: bits 6,7,0,1 = 0,0,1,1.
	if got := g.Unsigned(6, 4); got != 12 {
		t.Fatalf("Unsigned(6,4) = %d want 12", got)
	}
	if got := g.Unsigned(-2, 4); got != 12 {
		t.Fatalf("Unsigned(-2,4) = %d want 12", got)
	}
}

func TestUnsigned_BoundedAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := Random(256, rng)
	for i := 0; i < 2000; i++ {
		addr := rng.Intn(4096) - 2048
		size := 1 + rng.Intn(16)
		v1 := g.Unsigned(addr, size)
		v2 := g.Unsigned(addr, size)
		if v1 != v2 {
			t.Fatalf("not idempotent at addr=%d size=%d: %d vs %d", addr, size, v1, v2)
		}
		if v1 >= 1<<uint(size) {
			t.Fatalf("Unsigned(%d,%d)=%d exceeds 2^%d", addr, size, v1, size)
		}
	}
}

func TestRandom_SameSeedSameGenome(t *testing.T) {
	a := Random(256, rand.New(rand.NewSource(42)))
	b := Random(256, rand.New(rand.NewSource(42)))
	for i := 0; i < 256; i++ {
		if a.BitAt(i) != b.BitAt(i) {
			t.Fatalf("bit %d differs", i)
		}
		if v := a.BitAt(i); v > 1 {
			t.Fatalf("bit %d = %d", i, v)
		}
	}
}

func TestSwap_ExchangesWrappedSegments(t *testing.T) {
	a := FromBits([]uint8{1, 1, 1, 1, 0, 0, 0, 0})
	b := FromBits([]uint8{0, 0, 0, 0, 0, 0, 0, 0})

	Swap(a, b, 6, 0, 4) // a[6,7,0,1] <-> b[0..3]

	if got := a.Unsigned(0, 8); got != 0b00001100 {
		t.Fatalf("a after swap = %08b", got)
	}
	if got := b.Unsigned(0, 8); got != 0b00001100 {
		t.Fatalf("b after swap = %08b", got)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	a := FromBits([]uint8{0, 1})
	c := a.Clone()
	c.SetBit(0, 1)
	if a.BitAt(0) != 0 {
		t.Fatalf("clone aliased original")
	}
}
