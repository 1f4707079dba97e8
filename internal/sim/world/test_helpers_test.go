package world

import (
	"testing"

	"ninex.world/internal/sim/organism"
)

func smallConfig() Config {
	return Config{
		ID:                 "test",
		Seed:               42,
		GenomeAddressSize:  6,
		Width:              5,
		Height:             4,
		NeighborhoodRadius: 1,
		BitHistorySize:     16,
		Iterations:         10,
		TickRateHz:         1000,
	}
}

func newTestWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

// orderLog records every callback with the acting organism's position.
type orderLog struct {
	calls []string
	pos   []organism.Position
}

func (l *orderLog) Move(o *organism.Organism, _ organism.Env) {
	l.calls = append(l.calls, "move")
	l.pos = append(l.pos, o.Position())
}

func (l *orderLog) Meet(o *organism.Organism, _ organism.Env) {
	l.calls = append(l.calls, "meet")
}

func (l *orderLog) HistoryBitAddress(o *organism.Organism, _ organism.Env) int {
	l.calls = append(l.calls, "history")
	return 0
}
