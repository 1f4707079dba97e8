package world

import (
	"fmt"

	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/encoding"
	"ninex.world/internal/sim/genome"
	"ninex.world/internal/sim/history"
	"ninex.world/internal/sim/organism"
)

// ImportSnapshot replaces every organism and the tick counter with the
// snapshot's. The world must have the snapshot's shape; on error the world
// is left unchanged.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if w.State() == StateTerminated {
		return ErrTerminated
	}
	if snap.Width != w.cfg.Width || snap.Height != w.cfg.Height {
		return fmt.Errorf("snapshot size %dx%d does not match world %dx%d", snap.Width, snap.Height, w.cfg.Width, w.cfg.Height)
	}
	if snap.GenomeAddressSize != w.cfg.GenomeAddressSize || snap.BitHistorySize != w.cfg.BitHistorySize {
		return fmt.Errorf("snapshot genome/history shape (%d, %d) does not match world (%d, %d)",
			snap.GenomeAddressSize, snap.BitHistorySize, w.cfg.GenomeAddressSize, w.cfg.BitHistorySize)
	}
	if want := w.cfg.Width * w.cfg.Height; len(snap.Organisms) != want {
		return fmt.Errorf("snapshot has %d organisms, want %d", len(snap.Organisms), want)
	}

	grid := make([][]*organism.Organism, w.cfg.Width)
	for x := range grid {
		grid[x] = make([]*organism.Organism, w.cfg.Height)
	}
	for i, ov := range snap.Organisms {
		if ov.X < 0 || ov.Y < 0 || ov.X >= w.cfg.Width || ov.Y >= w.cfg.Height {
			return fmt.Errorf("organism %d: position (%d,%d) outside grid", i, ov.X, ov.Y)
		}
		if grid[ov.X][ov.Y] != nil {
			return fmt.Errorf("organism %d: duplicate position (%d,%d)", i, ov.X, ov.Y)
		}
		gbits, err := encoding.UnpackBits(ov.Genome, w.genomeSize)
		if err != nil {
			return fmt.Errorf("organism (%d,%d) genome: %w", ov.X, ov.Y, err)
		}
		hbits, err := encoding.UnpackBits(ov.History, w.cfg.BitHistorySize)
		if err != nil {
			return fmt.Errorf("organism (%d,%d) history: %w", ov.X, ov.Y, err)
		}
		grid[ov.X][ov.Y] = organism.Restore(
			organism.Position{X: ov.X, Y: ov.Y},
			genome.FromBits(gbits),
			history.FromSlice(hbits),
			ov.Iterations,
		)
	}

	w.grid = grid
	w.tick.Store(snap.Header.Tick)
	w.storeMetrics(snap.Header.Tick)
	return nil
}
