package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ninex.world/internal/persistence/indexdb"
	persistlog "ninex.world/internal/persistence/log"
	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/tuning"
	"ninex.world/internal/sim/world"
)

var (
	resume    bool
	disableDB bool
)

// loadTuning reads the config file (defaults when it does not exist) and
// applies command-line overrides.
func loadTuning(cmd *cobra.Command) (tuning.Tuning, error) {
	tune, err := tuning.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return tune, fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("config not found; using defaults", zap.String("path", configPath))
		tune = tuning.Defaults()
	}
	if worldID != "" {
		tune.WorldID = worldID
	}
	if cmd.Flags().Changed("seed") {
		tune.Seed = seedFlag
	}
	if iterations > 0 {
		tune.Iterations = iterations
	}
	return tune, nil
}

func worldDirFor(id string) string {
	return filepath.Join(dataDir, "worlds", id)
}

// openWorld builds a fresh world, or resumes from snapshotPath when set.
func openWorld(tune tuning.Tuning, snapshotPath string) (*world.World, error) {
	cfg := tune.WorldConfig()
	if snapshotPath == "" {
		return world.New(cfg, logger)
	}
	snap, err := snapshot.ReadSnapshot(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.ID {
		return nil, fmt.Errorf("snapshot world id mismatch: config=%s snap=%s", cfg.ID, snap.Header.WorldID)
	}
	resumed := world.ConfigFromSnapshot(snap)
	// Run length and pacing may change between runs; the grid may not.
	resumed.Iterations = cfg.Iterations
	resumed.TickRateHz = cfg.TickRateHz
	w, err := world.New(resumed, logger)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	logger.Info("resumed from snapshot", zap.String("path", filepath.Base(snapshotPath)), zap.Uint64("tick", w.CurrentTick()))
	return w, nil
}

func listSnapshots(worldDir string) []string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	type entry struct {
		tick uint64
		path string
	}
	var found []entry
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		found = append(found, entry{tick: tick, path: filepath.Join(dir, name)})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].tick < found[j].tick })
	out := make([]string, len(found))
	for i, e := range found {
		out[i] = e.path
	}
	return out
}

func latestSnapshot(worldDir string) string {
	snaps := listSnapshots(worldDir)
	if len(snaps) == 0 {
		return ""
	}
	return snaps[len(snaps)-1]
}

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

// multiTickLogger fans a tick entry out to the JSONL log and the index.
type multiTickLogger struct {
	a *persistlog.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(e world.TickLogEntry) error {
	if m.a != nil {
		if err := m.a.WriteTick(e); err != nil {
			return err
		}
	}
	if m.b != nil {
		_ = m.b.WriteTick(e)
	}
	return nil
}

// snapshotWriter persists snapshots from the world's sink until ch is
// closed. done is closed once every queued snapshot is on disk.
func snapshotWriter(worldDir string, ch <-chan snapshot.SnapshotV1, idx *indexdb.SQLiteIndex) (done <-chan struct{}) {
	d := make(chan struct{})
	go func() {
		defer close(d)
		for snap := range ch {
			writeSnapshot(worldDir, snap, idx)
		}
	}()
	return d
}

func writeSnapshot(worldDir string, snap snapshot.SnapshotV1, idx *indexdb.SQLiteIndex) {
	path := snapshotPath(worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Error("snapshot write", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Debug("snapshot written", zap.String("path", path), zap.Uint64("tick", snap.Header.Tick))
	if idx != nil {
		idx.RecordSnapshot(path, snap)
	}
}

// writeFinalSnapshot persists snap unless the periodic writer already put
// this tick on disk. Call it only after that writer has drained.
func writeFinalSnapshot(worldDir string, snap snapshot.SnapshotV1, idx *indexdb.SQLiteIndex) bool {
	if _, err := os.Stat(snapshotPath(worldDir, snap.Header.Tick)); err == nil {
		return false
	}
	writeSnapshot(worldDir, snap, idx)
	return true
}

func openIndex(worldDir string) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	return indexdb.OpenSQLite(filepath.Join(worldDir, "index.sqlite"))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func isLoopbackRequest(r *http.Request) bool {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
