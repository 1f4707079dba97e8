package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ninex.world/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID     string   `json:"run_id"`
	WorldID   string   `json:"world_id"`
	EndTick   uint64   `json:"end_tick"`
	Seed      int64    `json:"seed"`
	Behavior  string   `json:"behavior"`
	Snapshot  string   `json:"snapshot"`
	Extras    []string `json:"extras,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// ArchiveRunSnapshot copies a completed run's final snapshot, plus any
// existing extras (e.g. the poster), into `worldDir/archives/run_<id>/`.
// Snapshots short of the configured iteration count are not archived.
func ArchiveRunSnapshot(worldDir, runID, snapshotPath string, snap snapshot.SnapshotV1, extras ...string) (archivedPath string, archived bool, err error) {
	if runID == "" || snap.Iterations <= 0 || snap.Header.Tick < uint64(snap.Iterations) {
		return "", false, nil
	}

	archiveDir := filepath.Join(worldDir, "archives", fmt.Sprintf("run_%s", runID))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RunArchiveMeta{
		RunID:     runID,
		WorldID:   snap.Header.WorldID,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		Behavior:  snap.Behavior,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, p := range extras {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := copyFile(p, filepath.Join(archiveDir, filepath.Base(p))); err != nil {
			return "", false, err
		}
		meta.Extras = append(meta.Extras, filepath.Base(p))
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
