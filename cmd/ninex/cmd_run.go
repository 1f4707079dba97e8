package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ninex.world/internal/persistence/archive"
	"ninex.world/internal/persistence/indexdb"
	persistlog "ninex.world/internal/persistence/log"
	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/render"
	"ninex.world/internal/sim/tuning"
	"ninex.world/internal/sim/world"
)

// runHeadless steps the world to completion as fast as possible.
func runHeadless(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	tune, err := loadTuning(cmd)
	if err != nil {
		return err
	}
	worldDir := worldDirFor(tune.WorldID)

	var snapToLoad string
	if resume {
		snapToLoad = latestSnapshot(worldDir)
	}
	w, err := openWorld(tune, snapToLoad)
	if err != nil {
		return err
	}
	defer w.Close()

	runID := uuid.NewString()
	log := logger.With(zap.String("world", w.ID()), zap.String("run", runID))

	idx, err := openIndex(worldDir)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.RecordRun(ctx, indexdb.RunInfo{
			RunID:     runID,
			WorldID:   w.ID(),
			Seed:      w.Config().Seed,
			Config:    w.Config(),
			Tuning:    tune,
			StartedAt: time.Now(),
		}); err != nil {
			log.Warn("index run", zap.Error(err))
		}
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	snapCh := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(snapCh)
	snapDone := snapshotWriter(worldDir, snapCh, idx)
	if snapToLoad == "" {
		// Fresh worlds get a tick-0 snapshot so the whole run can be replayed.
		writeSnapshot(worldDir, w.ExportSnapshot(), idx)
	}

	out, err := newOutputs(tune, w)
	if err != nil {
		close(snapCh)
		<-snapDone
		return err
	}

	log.Info("run starting",
		zap.Uint64("tick", w.CurrentTick()),
		zap.Int("iterations", w.Config().Iterations),
		zap.Int("organisms", w.Config().Width*w.Config().Height),
		zap.String("behavior", w.Config().Behavior))

	start := time.Now()
	runErr := stepAll(ctx, w, out, idx)

	// Final state is always persisted, also when the run was interrupted.
	close(snapCh)
	<-snapDone
	final := w.ExportSnapshot()
	writeFinalSnapshot(worldDir, final, idx)

	if err := out.finish(); err != nil {
		log.Error("outputs", zap.Error(err))
	}
	if dst, ok, err := archive.ArchiveRunSnapshot(worldDir, runID, snapshotPath(worldDir, final.Header.Tick), final, out.path); err != nil {
		log.Warn("archive run", zap.Error(err))
	} else if ok {
		log.Info("run archived", zap.String("path", dst))
	}
	log.Info("run finished",
		zap.Uint64("tick", w.CurrentTick()),
		zap.String("digest", w.Digest()),
		zap.Duration("elapsed", time.Since(start)))
	if runErr == context.Canceled {
		return nil
	}
	return runErr
}

// stepAll captures outputs before each iteration, so a run of N iterations
// yields frames 0..N-1.
func stepAll(ctx context.Context, w *world.World, out *outputs, idx *indexdb.SQLiteIndex) error {
	for !w.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := out.capture(w); err != nil {
			return err
		}
		if err := w.Step(); err != nil {
			return err
		}
		if idx != nil && w.CurrentTick()%64 == 0 {
			idx.RecordMetrics(w.Metrics())
		}
	}
	return nil
}

// outputs writes movie frames and collects poster tiles.
type outputs struct {
	movie  tuning.Movie
	poster *render.Poster
	path   string
	every  uint64
}

func newOutputs(tune tuning.Tuning, w *world.World) (*outputs, error) {
	o := &outputs{movie: tune.Movie}
	if o.movie.Enabled && o.movie.Dir != "" && !filepath.IsAbs(o.movie.Dir) {
		o.movie.Dir = filepath.Join(worldDirFor(w.ID()), o.movie.Dir)
	}
	if tune.Poster.Enabled {
		width, height := w.Size()
		p, err := render.NewPoster(tune.Poster.Width, tune.Poster.Height, tune.Poster.Margin, tune.Poster.Scale, width, height)
		if err != nil {
			return nil, err
		}
		o.poster = p
		o.path = tune.Poster.Path
		if !filepath.IsAbs(o.path) {
			o.path = filepath.Join(worldDirFor(w.ID()), o.path)
		}
		o.every = uint64(render.SampleEvery(w.Config().Iterations, tune.Poster.Width, tune.Poster.Height))
	}
	return o, nil
}

func (o *outputs) capture(w *world.World) error {
	if !o.movie.Enabled && (o.poster == nil || o.poster.Full()) {
		return nil
	}
	tick := w.CurrentTick()
	f := render.Capture(w)
	if o.movie.Enabled {
		path := render.FramePath(o.movie.Dir, o.movie.Prefix, tick)
		if err := render.WriteJPEG(path, f, o.movie.Scale, o.movie.Quality); err != nil {
			return fmt.Errorf("frame %d: %w", tick, err)
		}
	}
	if o.poster != nil && !o.poster.Full() && tick%o.every == 0 {
		if err := o.poster.Add(f); err != nil {
			return err
		}
	}
	return nil
}

func (o *outputs) finish() error {
	if o.poster == nil || o.poster.Len() == 0 {
		return nil
	}
	if err := o.poster.WritePNG(o.path); err != nil {
		return err
	}
	logger.Info("poster written", zap.String("path", o.path), zap.Int("frames", o.poster.Len()))
	return nil
}
