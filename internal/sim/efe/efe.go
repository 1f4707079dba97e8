// Package efe evaluates the expression function: an 8-cell circular
// automaton whose local rule is looked up in the organism's own genome.
package efe

import "ninex.world/internal/sim/genome"

// Width is the number of cells in every automaton row.
const Width = 8

// Engine holds the automaton shape. Length is the number of rows including
// the input row; Spread scales a 3-bit neighborhood code to a genome address.
type Engine struct {
	Length int
	Spread int
}

func New(length, spread int) Engine {
	if length < 1 {
		length = 1
	}
	return Engine{Length: length, Spread: spread}
}

// RuleAddress is the genome address consulted for neighborhood code n (0..7).
func (e Engine) RuleAddress(n int) int {
	return e.Spread * n
}

// Eval grows the automaton from in for Length-1 generations and returns
// 4*c0 + 2*c1 + c2 of the final row. The result is always in [0, 8).
func (e Engine) Eval(v genome.View, in [Width]uint8) uint8 {
	cur := in
	for x := range cur {
		if cur[x] != 0 {
			cur[x] = 1
		}
	}
	var next [Width]uint8
	for y := 1; y < e.Length; y++ {
		for x := 0; x < Width; x++ {
			left := cur[genome.Wrap(x-1, Width)]
			center := cur[x]
			right := cur[genome.Wrap(x+1, Width)]
			n := 4*int(left) + 2*int(center) + int(right)
			next[x] = v.BitAt(e.RuleAddress(n))
		}
		cur = next
	}
	return 4*cur[0] + 2*cur[1] + cur[2]
}

// Grid returns every row of the automaton, input row first. It is the
// debugging form of Eval and allocates.
func (e Engine) Grid(v genome.View, in [Width]uint8) [][Width]uint8 {
	rows := make([][Width]uint8, 0, e.Length)
	cur := in
	for x := range cur {
		if cur[x] != 0 {
			cur[x] = 1
		}
	}
	rows = append(rows, cur)
	for y := 1; y < e.Length; y++ {
		var next [Width]uint8
		for x := 0; x < Width; x++ {
			n := 4*int(cur[genome.Wrap(x-1, Width)]) + 2*int(cur[x]) + int(cur[genome.Wrap(x+1, Width)])
			next[x] = v.BitAt(e.RuleAddress(n))
		}
		rows = append(rows, next)
		cur = next
	}
	return rows
}

// BitsFromUint spreads the low 8 bits of u over an input row, most
// significant bit in cell 0.
func BitsFromUint(u uint64) [Width]uint8 {
	var in [Width]uint8
	for x := 0; x < Width; x++ {
		in[x] = uint8((u >> uint(Width-1-x)) & 1)
	}
	return in
}
