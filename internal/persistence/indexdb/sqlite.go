package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/tuning"
	"ninex.world/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of a run: its configuration,
// the per-iteration digests and the snapshots written to disk. Writes are
// queued and applied by a single goroutine; the JSONL logs and snapshot
// files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropSnapshot atomic.Uint64
	dropMetrics  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
	reqMetrics
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	snapshot snapshotRow
	metrics  world.WorldMetrics
}

type snapshotRow struct {
	Tick      uint64
	Path      string
	WorldID   string
	Seed      int64
	Width     int
	Height    int
	Organisms int
}

// Stats reports queue pressure; drops happen when the writer falls behind.
type Stats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	DropTickTotal     uint64 `json:"drop_tick_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	DropMetricsTotal  uint64 `json:"drop_metrics_total"`
}

// RunInfo identifies one invocation of the simulator.
type RunInfo struct {
	RunID     string
	WorldID   string
	Seed      int64
	Config    world.Config
	Tuning    tuning.Tuning
	StartedAt time.Time
}

// SnapshotRecord is a row of the snapshots table.
type SnapshotRecord struct {
	Tick      uint64
	Path      string
	WorldID   string
	Seed      int64
	Width     int
	Height    int
	Organisms int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			tuning_digest TEXT NOT NULL,
			tuning_json TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			organisms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metrics (
			tick INTEGER PRIMARY KEY,
			step_ms REAL NOT NULL,
			distinct_colors INTEGER NOT NULL,
			mean_red REAL NOT NULL,
			mean_green REAL NOT NULL,
			mean_blue REAL NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropMetricsTotal:  s.dropMetrics.Load(),
	}
}

// WriteTick implements world.TickLogger.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:      snap.Header.Tick,
		Path:      path,
		WorldID:   snap.Header.WorldID,
		Seed:      snap.Seed,
		Width:     snap.Width,
		Height:    snap.Height,
		Organisms: len(snap.Organisms),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) RecordMetrics(m world.WorldMetrics) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMetrics, metrics: m}:
	default:
		s.dropMetrics.Add(1)
	}
}

// RecordRun stores the run's configuration synchronously.
func (s *SQLiteIndex) RecordRun(ctx context.Context, run RunInfo) error {
	if s == nil {
		return nil
	}
	if run.RunID == "" {
		return errors.New("empty run id")
	}
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	tuneJSON, err := json.Marshal(run.Tuning)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(tuneJSON)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(run_id,world_id,seed,config_json,tuning_digest,tuning_json,started_at) VALUES(?,?,?,?,?,?,?)`,
		run.RunID, run.WorldID, run.Seed, string(cfgJSON), hex.EncodeToString(sum[:]), string(tuneJSON),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// TickDigest returns the digest recorded for tick.
func (s *SQLiteIndex) TickDigest(ctx context.Context, tick uint64) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// LatestSnapshot returns the snapshot with the highest tick at or below
// maxTick.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context, maxTick uint64) (SnapshotRecord, bool, error) {
	var r SnapshotRecord
	var tick int64
	err := s.db.QueryRowContext(ctx,
		`SELECT tick,path,world_id,seed,width,height,organisms FROM snapshots WHERE tick <= ? ORDER BY tick DESC LIMIT 1`,
		int64(maxTick),
	).Scan(&tick, &r.Path, &r.WorldID, &r.Seed, &r.Width, &r.Height, &r.Organisms)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.Tick = uint64(tick)
	return r, true, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest) VALUES(?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,world_id,seed,width,height,organisms) VALUES(?,?,?,?,?,?,?)`)
	insertMetrics, _ := s.db.Prepare(`INSERT OR REPLACE INTO metrics(tick,step_ms,distinct_colors,mean_red,mean_green,mean_blue) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertSnapshot, insertMetrics} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	// Readers share the single connection with the open transaction, so an
	// idle transaction is committed on a timer as well.
	ticker := time.NewTicker(commitMaxWait / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil {
				continue
			}
			switch r.kind {
			case reqTick:
				exec(insertTick, int64(r.tick.Tick), r.tick.Digest)
			case reqSnapshot:
				sn := r.snapshot
				exec(insertSnapshot, int64(sn.Tick), sn.Path, sn.WorldID, sn.Seed, sn.Width, sn.Height, sn.Organisms)
				// Snapshots are rare and looked up right after they land.
				commit()
				continue
			case reqMetrics:
				m := r.metrics
				exec(insertMetrics, int64(m.Tick), m.StepMS, m.DistinctColors, m.MeanRed, m.MeanGreen, m.MeanBlue)
			}
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}
