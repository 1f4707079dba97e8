package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ninex.world/internal/persistence/indexdb"
	persistlog "ninex.world/internal/persistence/log"
	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/world"
	"ninex.world/internal/transport/observer"
)

const testConfig = `
world_id: cli
seed: 7
genome_address_size: 6
width: 6
height: 5
bit_history_size: 16
iterations: 12
behavior: history-gene
snapshot_every_ticks: 5
poster:
  enabled: true
  path: poster.png
  width: 2
  height: 2
  margin: 2
  scale: 1
movie:
  enabled: true
  dir: frames
  prefix: f
  scale: 2
  quality: 80
`

func setupCLI(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "ninex.yaml")
	if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	dataDir = filepath.Join(dir, "data")
	worldID, iterations, resume, disableDB = "", 0, false, false
	replaySnapshot, replayToTick = "", 0
	inspectX, inspectY = -1, -1
	return dir
}

func TestRunThenReplayAndInspect(t *testing.T) {
	setupCLI(t)
	cmd := &cobra.Command{}

	if err := runHeadless(cmd, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	worldDir := worldDirFor("cli")

	snaps := listSnapshots(worldDir)
	var ticks []string
	for _, p := range snaps {
		ticks = append(ticks, filepath.Base(p))
	}
	if strings.Join(ticks, ",") != "0.snap.zst,5.snap.zst,10.snap.zst,12.snap.zst" {
		t.Fatalf("snapshots=%v", ticks)
	}
	last, err := snapshot.ReadSnapshot(latestSnapshot(worldDir))
	if err != nil || last.Header.Tick != 12 {
		t.Fatalf("last snapshot tick=%d err=%v", last.Header.Tick, err)
	}

	entries, err := persistlog.ReadTickLog(worldDir)
	if err != nil || len(entries) != 12 {
		t.Fatalf("tick log entries=%d err=%v", len(entries), err)
	}

	for _, name := range []string{"poster.png", filepath.Join("frames", "f.0000.jpg"), filepath.Join("frames", "f.0011.jpg"), "index.sqlite"} {
		if _, err := os.Stat(filepath.Join(worldDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	// One frame per iteration: 0..11.
	frames, _ := filepath.Glob(filepath.Join(worldDir, "frames", "f.*.jpg"))
	if len(frames) != 12 {
		t.Fatalf("frames=%d want 12", len(frames))
	}
	archived, _ := filepath.Glob(filepath.Join(worldDir, "archives", "run_*", "*"))
	var archivedNames []string
	for _, p := range archived {
		archivedNames = append(archivedNames, filepath.Base(p))
	}
	if strings.Join(archivedNames, ",") != "12.snap.zst,meta.json,poster.png" {
		t.Fatalf("archive=%v", archivedNames)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := runReplay(cmd, nil); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out.String(), "checked=12") {
		t.Fatalf("replay output=%q", out.String())
	}

	out.Reset()
	inspectX, inspectY = 2, 3
	if err := runInspect(cmd, []string{latestSnapshot(worldDir)}); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"tick=12", "organism (2,3) iterations=12", "history_bit address="} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_FinalSnapshotOnPeriodicTick(t *testing.T) {
	setupCLI(t)
	iterations = 10
	if err := runHeadless(&cobra.Command{}, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	worldDir := worldDirFor("cli")
	var names []string
	for _, p := range listSnapshots(worldDir) {
		names = append(names, filepath.Base(p))
	}
	if strings.Join(names, ",") != "0.snap.zst,5.snap.zst,10.snap.zst" {
		t.Fatalf("snapshots=%v", names)
	}

	snap, err := snapshot.ReadSnapshot(snapshotPath(worldDir, 10))
	if err != nil {
		t.Fatal(err)
	}
	if writeFinalSnapshot(worldDir, snap, nil) {
		t.Fatalf("tick 10 was written twice")
	}
	snap.Header.Tick = 11
	if !writeFinalSnapshot(worldDir, snap, nil) {
		t.Fatalf("expected tick 11 to be written")
	}
	if _, err := os.Stat(snapshotPath(worldDir, 11)); err != nil {
		t.Fatalf("missing 11.snap.zst: %v", err)
	}
}

func TestRun_ResumeContinuesFromLatestSnapshot(t *testing.T) {
	setupCLI(t)
	cmd := &cobra.Command{}
	iterations = 6
	if err := runHeadless(cmd, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	iterations, resume = 12, true
	if err := runHeadless(cmd, nil); err != nil {
		t.Fatalf("resumed run: %v", err)
	}

	snap, err := snapshot.ReadSnapshot(latestSnapshot(worldDirFor("cli")))
	if err != nil || snap.Header.Tick != 12 {
		t.Fatalf("latest tick=%d err=%v", snap.Header.Tick, err)
	}

	// The resumed run must match a straight 12-iteration run.
	w, err := world.New(world.ConfigFromSnapshot(snap), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	setupCLI(t)
	if err := runHeadless(cmd, nil); err != nil {
		t.Fatalf("straight run: %v", err)
	}
	straight, err := snapshot.ReadSnapshot(latestSnapshot(worldDirFor("cli")))
	if err != nil {
		t.Fatal(err)
	}
	w2, _ := world.New(world.ConfigFromSnapshot(straight), nil)
	if err := w2.ImportSnapshot(straight); err != nil {
		t.Fatal(err)
	}
	if w.Digest() != w2.Digest() {
		t.Fatalf("resumed run diverged from straight run")
	}
}

func TestReplay_DetectsTamperedLog(t *testing.T) {
	setupCLI(t)
	snapPath := filepath.Join(t.TempDir(), "0.snap.zst")
	w, err := world.New(world.Config{ID: "x", Seed: 1, GenomeAddressSize: 5, Width: 4, Height: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	snap := w.ExportSnapshot()
	if err := snapshot.WriteSnapshot(snapPath, snap); err != nil {
		t.Fatal(err)
	}
	var entries []world.TickLogEntry
	for i := 0; i < 3; i++ {
		tick, d, _ := w.StepOnce()
		entries = append(entries, world.TickLogEntry{Tick: tick, Digest: d})
	}
	if n, err := replay(snap, entries, 0); err != nil || n != 3 {
		t.Fatalf("replay n=%d err=%v", n, err)
	}
	entries[2].Digest = "bogus"
	if _, err := replay(snap, entries, 0); err == nil || !strings.Contains(err.Error(), "tick 2") {
		t.Fatalf("expected mismatch at tick 2, got %v", err)
	}
	// Stopping before the tampered entry succeeds.
	if n, err := replay(snap, entries, 1); err != nil || n != 2 {
		t.Fatalf("replay to tick 1: n=%d err=%v", n, err)
	}
}

func TestServeMux(t *testing.T) {
	setupCLI(t)
	w, err := world.New(world.Config{ID: "srv", Seed: 1, GenomeAddressSize: 5, Width: 4, Height: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	mux := newServeMux(w, observer.NewServer(w, nil), (*indexdb.SQLiteIndex)(nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz=%d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{`ninex_world_tick{world="srv"} 0`, `ninex_world_organisms{world="srv"} 16`, "ninex_index_dropped_total"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/snapshot", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("snapshot GET=%d", rec.Code)
	}
}
