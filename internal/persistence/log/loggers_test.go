package log

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ninex.world/internal/sim/world"
)

func TestTickLogger_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	want := []world.TickLogEntry{
		{Tick: 0, Digest: "aa"},
		{Tick: 1, Digest: "bb"},
		{Tick: 2, Digest: "cc"},
	}
	for _, e := range want {
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadTickLog(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
}

func TestTickLogger_FromWorld(t *testing.T) {
	dir := t.TempDir()
	w, err := world.New(world.Config{ID: "log", Seed: 3, GenomeAddressSize: 5, Width: 4, Height: 4, Iterations: 6}, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	l := NewTickLogger(dir)
	w.SetTickLogger(l)
	for i := 0; i < 6; i++ {
		if err := w.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	_ = l.Close()

	got, err := ReadTickLog(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 6 || got[5].Tick != 5 || got[5].Digest != w.Digest() {
		t.Fatalf("unexpected log tail: %+v", got)
	}
}

func TestReadTickLog_EmptyDir(t *testing.T) {
	got, err := ReadTickLog(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestTickLogger_SplitsByIterationSegment(t *testing.T) {
	dir := t.TempDir()
	l := &TickLogger{w: NewSegmentWriter(filepath.Join(dir, "events"), "events", 2)}
	var want []world.TickLogEntry
	for tick := uint64(0); tick < 5; tick++ {
		e := world.TickLogEntry{Tick: tick, Digest: string(rune('a' + tick))}
		want = append(want, e)
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "events", "*.jsonl.zst"))
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	wantNames := []string{
		"events-000000000000.jsonl.zst",
		"events-000000000002.jsonl.zst",
		"events-000000000004.jsonl.zst",
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("segments (-want +got):\n%s", diff)
	}

	got, err := ReadTickLog(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
}

func TestTickLogger_ReopenAppendsToSegment(t *testing.T) {
	dir := t.TempDir()
	first := NewTickLogger(dir)
	_ = first.WriteTick(world.TickLogEntry{Tick: 0, Digest: "aa"})
	_ = first.WriteTick(world.TickLogEntry{Tick: 1, Digest: "bb"})
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second := NewTickLogger(dir)
	_ = second.WriteTick(world.TickLogEntry{Tick: 2, Digest: "cc"})
	if err := second.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadTickLog(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[2].Digest != "cc" {
		t.Fatalf("entries=%+v", got)
	}
}

func TestSegmentWriter_CloseWithoutWrites(t *testing.T) {
	if err := NewSegmentWriter(t.TempDir(), "x", 0).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
