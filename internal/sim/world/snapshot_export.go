package world

import (
	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/encoding"
)

// ExportSnapshot captures the world after CurrentTick iterations.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Seed:               w.cfg.Seed,
		GenomeAddressSize:  w.cfg.GenomeAddressSize,
		Width:              w.cfg.Width,
		Height:             w.cfg.Height,
		NeighborhoodRadius: w.cfg.NeighborhoodRadius,
		BitHistorySize:     w.cfg.BitHistorySize,
		EFELength:          w.cfg.EFELength,
		EFESpread:          w.cfg.EFESpread,
		Behavior:           w.cfg.Behavior,
		Iterations:         w.cfg.Iterations,
		TickRateHz:         w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		RedModulus:         w.cfg.RedModulus,
		Organisms:          make([]snapshot.OrganismV1, 0, w.cfg.Width*w.cfg.Height),
	}
	for x := range w.grid {
		for y := range w.grid[x] {
			o := w.grid[x][y]
			snap.Organisms = append(snap.Organisms, snapshot.OrganismV1{
				X:          x,
				Y:          y,
				Genome:     encoding.PackBits(o.Genome().Bits()),
				History:    encoding.PackBits(o.History().Slice()),
				Iterations: o.Iterations(),
			})
		}
	}
	return snap
}

// ConfigFromSnapshot rebuilds the configuration a snapshot was taken with.
func ConfigFromSnapshot(snap snapshot.SnapshotV1) Config {
	return Config{
		ID:                 snap.Header.WorldID,
		Seed:               snap.Seed,
		GenomeAddressSize:  snap.GenomeAddressSize,
		Width:              snap.Width,
		Height:             snap.Height,
		NeighborhoodRadius: snap.NeighborhoodRadius,
		BitHistorySize:     snap.BitHistorySize,
		Iterations:         snap.Iterations,
		EFELength:          snap.EFELength,
		EFESpread:          snap.EFESpread,
		Behavior:           snap.Behavior,
		TickRateHz:         snap.TickRateHz,
		SnapshotEveryTicks: snap.SnapshotEveryTicks,
		RedModulus:         snap.RedModulus,
	}
}
