package world

import (
	"ninex.world/internal/sim/genome"
	"ninex.world/internal/sim/organism"
)

// neighborhood wraps around the grid edges, so every cell has a full square.
type neighborhood struct {
	w    *World
	x, y int
}

func (n neighborhood) Radius() int      { return n.w.cfg.NeighborhoodRadius }
func (n neighborhood) AddressSize() int { return n.w.neighborhoodAddressSize }

func (n neighborhood) At(dx, dy int) *organism.Organism {
	return n.w.grid[genome.Wrap(n.x+dx, n.w.cfg.Width)][genome.Wrap(n.y+dy, n.w.cfg.Height)]
}

// Neighborhood returns the neighborhood centred on (x, y).
func (w *World) Neighborhood(x, y int) organism.Neighborhood {
	return neighborhood{w: w, x: genome.Wrap(x, w.cfg.Width), y: genome.Wrap(y, w.cfg.Height)}
}

func (w *World) env(x, y int) organism.Env {
	return organism.Env{
		Decoder:   w.decoder,
		Engine:    w.engine,
		Neighbors: neighborhood{w: w, x: x, y: y},
	}
}
