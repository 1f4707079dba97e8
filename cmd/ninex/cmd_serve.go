package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ninex.world/internal/persistence/indexdb"
	persistlog "ninex.world/internal/persistence/log"
	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/world"
	"ninex.world/internal/transport/observer"
)

var (
	listenAddr  string
	allowRemote bool
)

// runServe runs the world paced at tick_rate_hz behind an HTTP server.
func runServe(cmd *cobra.Command, args []string) error {
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

	runID := uuid.NewString()
	idx, err := openIndex(worldDir)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.RecordRun(ctx, indexdb.RunInfo{RunID: runID, WorldID: w.ID(), Seed: w.Config().Seed, Config: w.Config(), Tuning: tune}); err != nil {
			logger.Warn("index run", zap.Error(err))
		}
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	metricsLog := persistlog.NewMetricsLogger(worldDir)
	defer metricsLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := snapshotWriter(worldDir, snapCh, idx)
	if snapToLoad == "" {
		// Fresh worlds get a tick-0 snapshot so the whole run can be replayed.
		writeSnapshot(worldDir, w.ExportSnapshot(), idx)
	}

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", zap.Error(err))
		}
	}()

	// Periodic metrics sampling (does not touch world state).
	go func() {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-worldDone:
				return
			case <-t.C:
				m := w.Metrics()
				_ = metricsLog.WriteMetrics(m)
				idx.RecordMetrics(m)
			}
		}
	}()

	obsSrv := observer.NewServer(w, logger)
	obsSrv.AllowRemote = allowRemote
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           newServeMux(w, obsSrv, idx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", listenAddr), zap.String("world", w.ID()), zap.String("run", runID))
	serveErr := srv.ListenAndServe()
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	cancel()
	<-worldDone
	writeSnapshot(worldDir, w.ExportSnapshot(), idx)
	close(snapCh)
	<-snapDone
	w.Close()
	return serveErr
}

func newServeMux(w *world.World, obsSrv *observer.Server, idx *indexdb.SQLiteIndex) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.ID(), w.Metrics(), idx.Stats())
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !allowRemote && !isLoopbackRequest(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: w.ID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !allowRemote && !isLoopbackRequest(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		tick, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
	})
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())
	return mux
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(out io.Writer, id string, m world.WorldMetrics, st indexdb.Stats) {
	fmt.Fprintf(out, "# HELP ninex_world_tick Completed iterations.\n")
	fmt.Fprintf(out, "# TYPE ninex_world_tick gauge\n")
	fmt.Fprintf(out, "ninex_world_tick{world=%q} %d\n", id, m.Tick)

	fmt.Fprintf(out, "# HELP ninex_world_organisms Organisms on the grid.\n")
	fmt.Fprintf(out, "# TYPE ninex_world_organisms gauge\n")
	fmt.Fprintf(out, "ninex_world_organisms{world=%q} %d\n", id, m.Organisms)

	fmt.Fprintf(out, "# HELP ninex_world_observers Connected observer sessions.\n")
	fmt.Fprintf(out, "# TYPE ninex_world_observers gauge\n")
	fmt.Fprintf(out, "ninex_world_observers{world=%q} %d\n", id, m.Observers)

	fmt.Fprintf(out, "# HELP ninex_world_step_ms Last iteration duration in milliseconds.\n")
	fmt.Fprintf(out, "# TYPE ninex_world_step_ms gauge\n")
	fmt.Fprintf(out, "ninex_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

	fmt.Fprintf(out, "# HELP ninex_display_distinct_colors Distinct display colors on the grid.\n")
	fmt.Fprintf(out, "# TYPE ninex_display_distinct_colors gauge\n")
	fmt.Fprintf(out, "ninex_display_distinct_colors{world=%q} %d\n", id, m.DistinctColors)

	fmt.Fprintf(out, "# HELP ninex_display_mean Mean display channel value.\n")
	fmt.Fprintf(out, "# TYPE ninex_display_mean gauge\n")
	fmt.Fprintf(out, "ninex_display_mean{world=%q,channel=%q} %.3f\n", id, "red", m.MeanRed)
	fmt.Fprintf(out, "ninex_display_mean{world=%q,channel=%q} %.3f\n", id, "green", m.MeanGreen)
	fmt.Fprintf(out, "ninex_display_mean{world=%q,channel=%q} %.3f\n", id, "blue", m.MeanBlue)

	fmt.Fprintf(out, "# HELP ninex_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(out, "# TYPE ninex_index_queue_depth gauge\n")
	fmt.Fprintf(out, "ninex_index_queue_depth{world=%q} %d\n", id, st.QueueDepth)

	fmt.Fprintf(out, "# HELP ninex_index_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(out, "# TYPE ninex_index_dropped_total counter\n")
	fmt.Fprintf(out, "ninex_index_dropped_total{world=%q,kind=%q} %d\n", id, "tick", st.DropTickTotal)
	fmt.Fprintf(out, "ninex_index_dropped_total{world=%q,kind=%q} %d\n", id, "snapshot", st.DropSnapshotTotal)
	fmt.Fprintf(out, "ninex_index_dropped_total{world=%q,kind=%q} %d\n", id, "metrics", st.DropMetricsTotal)
}
