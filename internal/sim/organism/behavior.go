package organism

import (
	"fmt"
	"sort"
	"strings"
)

// Behavior supplies the movement, meeting and history-addressing rules.
// Implementations may only touch the acting organism and, for Meet,
// organisms reached through env.Neighbors.
type Behavior interface {
	Move(o *Organism, env Env)
	Meet(o *Organism, env Env)
	HistoryBitAddress(o *Organism, env Env) int
}

const (
	BehaviorReference   = "reference"
	BehaviorHistoryGene = "history-gene"
)

// Reference leaves organisms in place and always records genome bit 0.
type Reference struct{}

func (Reference) Move(*Organism, Env)                  {}
func (Reference) Meet(*Organism, Env)                  {}
func (Reference) HistoryBitAddress(*Organism, Env) int { return 0 }

// HistoryGene is Reference with the history address taken from the
// history-bit gene.
type HistoryGene struct{ Reference }

func (HistoryGene) HistoryBitAddress(o *Organism, env Env) int {
	return int(env.Decoder.HistoryBit(o.genome).Address)
}

var builtin = map[string]Behavior{
	BehaviorReference:   Reference{},
	BehaviorHistoryGene: HistoryGene{},
}

// Lookup resolves a built-in behavior by name. Empty selects Reference.
func Lookup(name string) (Behavior, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = BehaviorReference
	}
	b, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown behavior %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return b, nil
}

func Names() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
