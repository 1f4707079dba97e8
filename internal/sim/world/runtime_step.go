package world

import (
	"time"

	"go.uber.org/zap"
)

// Step advances the world by one iteration: every organism is updated
// exactly once, x outer and y inner. Updates are applied in place, so an
// organism later in the scan sees the effects of earlier ones.
func (w *World) Step() error {
	switch w.State() {
	case StateTerminated:
		return ErrTerminated
	case StatePopulated:
		w.state.Store(int32(StateRunning))
	}
	w.stepInternal()
	return nil
}

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce() (tick uint64, digest string, err error) {
	tick = w.tick.Load()
	if err := w.Step(); err != nil {
		return tick, "", err
	}
	return tick, w.Digest(), nil
}

func (w *World) stepInternal() {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	for x := 0; x < w.cfg.Width; x++ {
		col := w.grid[x]
		for y := 0; y < w.cfg.Height; y++ {
			col[y].Iterate(w.behavior, w.env(x, y))
		}
	}

	nextTick := w.tick.Add(1)

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Digest: w.Digest()}); err != nil {
			w.log.Warn("tick log write", zap.Uint64("tick", nowTick), zap.Error(err))
		}
	}

	// Snapshot every N ticks, counted in completed iterations.
	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && nextTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot()
		select {
		case w.snapshotSink <- snap:
		default:
			// Drop snapshot if sink is backed up.
			w.log.Warn("snapshot dropped", zap.Uint64("tick", nextTick))
		}
	}

	w.stepObservers(nextTick)

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.storeMetricsWithStep(nextTick, stepMS)
}
