// Package organism hosts a genome, its bit history and its grid position,
// and drives the per-iteration move -> meet -> shift sequence through a
// pluggable Behavior.
package organism

import (
	"math/rand"

	"ninex.world/internal/sim/efe"
	"ninex.world/internal/sim/genes"
	"ninex.world/internal/sim/genome"
	"ninex.world/internal/sim/history"
)

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Env is everything an organism may consult while it is updated. Neighbors
// is nil when no world is attached.
type Env struct {
	Decoder   genes.Decoder
	Engine    efe.Engine
	Neighbors Neighborhood
}

type Organism struct {
	pos     Position
	genome  *genome.Genome
	history *history.Bits

	iterations uint64
}

// New draws the genome first and then the history from rng.
func New(pos Position, genomeSize, historySize int, rng *rand.Rand) *Organism {
	g := genome.Random(genomeSize, rng)
	h := history.Random(historySize, rng)
	return &Organism{pos: pos, genome: g, history: h}
}

// Restore rebuilds an organism from persisted state.
func Restore(pos Position, g *genome.Genome, h *history.Bits, iterations uint64) *Organism {
	return &Organism{pos: pos, genome: g, history: h, iterations: iterations}
}

func (o *Organism) Position() Position     { return o.pos }
func (o *Organism) Genome() *genome.Genome { return o.genome }
func (o *Organism) History() *history.Bits { return o.history }
func (o *Organism) Iterations() uint64     { return o.iterations }

// Iterate runs one update: move, meet, then shift the bit history. The new
// history bit is read from the genome at the address the behavior names.
func (o *Organism) Iterate(b Behavior, env Env) {
	b.Move(o, env)
	b.Meet(o, env)
	o.ShiftHistory(b.HistoryBitAddress(o, env))
	o.iterations++
}

// ShiftHistory appends the genome bit at addr to the history.
func (o *Organism) ShiftHistory(addr int) {
	o.history.Shift(o.genome.BitAt(addr))
}

func (o *Organism) Display(d genes.Decoder) genes.DisplayGene {
	return d.Display(o.genome)
}

// Express evaluates the expression function over this organism's genome.
func (o *Organism) Express(e efe.Engine, in [efe.Width]uint8) uint8 {
	return e.Eval(o.genome, in)
}

// ExpressHistory feeds the newest eight history bits (oldest of them in
// cell 0) to the expression function.
func (o *Organism) ExpressHistory(e efe.Engine) uint8 {
	return e.Eval(o.genome, efe.BitsFromUint(o.history.Uint()))
}
