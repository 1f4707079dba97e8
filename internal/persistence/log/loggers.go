package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"ninex.world/internal/sim/world"
)

// SegmentTicks is the number of iterations covered by one log file.
const SegmentTicks = 4096

// SegmentWriter appends JSON lines to zstd files split by iteration range.
// A segment is named after its first tick, zero-padded, so lexical order is
// tick order. Reopening a segment (e.g. on resume) appends a new zstd frame.
type SegmentWriter struct {
	dir    string
	prefix string
	span   uint64

	mu   sync.Mutex
	seg  uint64
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
	open bool
}

func NewSegmentWriter(dir, prefix string, span uint64) *SegmentWriter {
	if span == 0 {
		span = SegmentTicks
	}
	return &SegmentWriter{dir: dir, prefix: prefix, span: span}
}

func (w *SegmentWriter) Append(tick uint64, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seg := tick - tick%w.span; !w.open || seg != w.seg {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *SegmentWriter) openLocked(seg uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.segmentPath(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.seg, w.open = f, enc, seg, true
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *SegmentWriter) closeLocked() error {
	if !w.open {
		return nil
	}
	w.open = false
	err := w.buf.Flush()
	if cerr := w.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f, w.enc, w.buf = nil, nil, nil
	return err
}

func (w *SegmentWriter) segmentPath(seg uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%012d.jsonl.zst", w.prefix, seg))
}

// TickLogger writes one entry per iteration under worldDir/events.
type TickLogger struct{ w *SegmentWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewSegmentWriter(filepath.Join(worldDir, "events"), "events", SegmentTicks)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Append(e.Tick, e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// MetricsLogger writes sampled world metrics under worldDir/metrics.
type MetricsLogger struct{ w *SegmentWriter }

func NewMetricsLogger(worldDir string) *MetricsLogger {
	return &MetricsLogger{w: NewSegmentWriter(filepath.Join(worldDir, "metrics"), "metrics", SegmentTicks)}
}

func (l *MetricsLogger) WriteMetrics(m world.WorldMetrics) error { return l.w.Append(m.Tick, m) }
func (l *MetricsLogger) Close() error                            { return l.w.Close() }
