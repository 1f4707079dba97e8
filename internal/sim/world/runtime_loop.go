package world

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run paces the world at TickRateHz until Iterations have completed, the
// context is cancelled or Stop is called. Observer and admin requests are
// served between iterations on the same goroutine.
func (w *World) Run(ctx context.Context) error {
	if w.State() == StateTerminated {
		return ErrTerminated
	}
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case <-ticker.C:
			if w.Done() {
				w.handleAdminSnapshotRequests(pendingAdmin)
				pendingAdmin = pendingAdmin[:0]
				continue
			}
			if err := w.Step(); err != nil {
				return err
			}
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingAdmin = pendingAdmin[:0]
			if w.Done() {
				w.log.Info("run complete", zap.Uint64("tick", w.CurrentTick()))
			}
		}
	}
}

// RunIterations steps the world synchronously until Iterations have
// completed. The context is checked between iterations only.
func (w *World) RunIterations(ctx context.Context) error {
	for !w.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Done reports whether the configured iteration count has been reached.
func (w *World) Done() bool {
	return w.tick.Load() >= uint64(w.cfg.Iterations)
}
