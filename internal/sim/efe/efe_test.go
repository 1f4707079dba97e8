package efe

import (
	"math/rand"
	"testing"

	"ninex.world/internal/sim/genome"
)

func TestEval_AllOnesRuleTable(t *testing.T) {
	g := genome.New(256)
	e := New(2, 32)
	for n := 0; n < 8; n++ {
		g.SetBit(e.RuleAddress(n), 1)
	}
	for u := 0; u < 256; u++ {
		if got := e.Eval(g, BitsFromUint(uint64(u))); got != 7 {
			t.Fatalf("input %08b: got %d want 7", u, got)
		}
	}
}

func TestEval_LengthOneReturnsInputPrefix(t *testing.T) {
	g := genome.New(256)
	e := New(1, 32)
	in := [Width]uint8{1, 0, 1, 1, 1, 1, 1, 1}
	if got := e.Eval(g, in); got != 5 {
		t.Fatalf("got %d want 5", got)
	}
}

func TestEval_IdentityRule(t *testing.T) {
	// Rule bit for code n is the centre bit of n, so every generation copies
	// its predecessor.
	g := genome.New(256)
	e := New(5, 16)
	for n := 0; n < 8; n++ {
		g.SetBit(e.RuleAddress(n), uint8((n>>1)&1))
	}
	in := [Width]uint8{0, 1, 1, 0, 0, 0, 1, 0}
	if got := e.Eval(g, in); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
	rows := e.Grid(g, in)
	if len(rows) != 5 {
		t.Fatalf("rows = %d want 5", len(rows))
	}
	for i, r := range rows {
		if r != in {
			t.Fatalf("row %d = %v want %v", i, r, in)
		}
	}
}

func TestEval_DeterministicAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		g := genome.Random(256, rng)
		e := New(2+rng.Intn(10), 1+rng.Intn(40))
		in := BitsFromUint(uint64(rng.Intn(256)))
		first := e.Eval(g, in)
		if first >= 8 {
			t.Fatalf("result %d out of range", first)
		}
		for k := 0; k < 5; k++ {
			if got := e.Eval(g, in); got != first {
				t.Fatalf("non-deterministic: %d vs %d", got, first)
			}
		}
		rows := e.Grid(g, in)
		last := rows[len(rows)-1]
		if want := 4*last[0] + 2*last[1] + last[2]; want != first {
			t.Fatalf("grid/eval disagree: %d vs %d", want, first)
		}
	}
}

func TestBitsFromUint(t *testing.T) {
	got := BitsFromUint(0b10000001)
	want := [Width]uint8{1, 0, 0, 0, 0, 0, 0, 1}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
