// Package status buffers per-segment outcome records in memory, grouped by
// calendar day, and flushes them to daily CSV files.
package status

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Download outcome values recorded per segment.
const (
	DownloadDownloaded = "downloaded"
	DownloadSkipped    = "skipped"
	DownloadFailed     = "failed"
)

// Upload outcome values recorded per segment.
const (
	UploadUploaded     = "uploaded"
	UploadFailed       = "failed"
	UploadNotAttempted = "not_attempted"
)

const (
	dayKeyLayout    = "2006_01_02"
	timestampLayout = "2006-01-02 15:04:05"
)

var header = []string{"camera", "interval_start", "interval_end", "filename", "download_status", "upload_status"}

// Record is one audit entry: the outcome of processing a single footage
// segment or snapshot. Immutable once created.
type Record struct {
	Camera         string
	IntervalStart  time.Time
	IntervalEnd    time.Time
	Filename       string
	DownloadStatus string
	UploadStatus   string
}

// dayKey buckets a record by the calendar date of its interval start, in
// local time regardless of how filenames render timestamps.
func (r Record) dayKey() string {
	return r.IntervalStart.Local().Format(dayKeyLayout)
}

// Ledger buffers records per calendar day until flushed. Safe for
// concurrent use.
type Ledger struct {
	dir string

	mu      sync.Mutex
	buckets map[string][]Record
}

// NewLedger returns a Ledger writing daily CSV files to dir, creating the
// directory if needed.
func NewLedger(dir string) (*Ledger, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve status directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create status directory %s: %w", abs, err)
	}

	return &Ledger{
		dir:     abs,
		buckets: make(map[string][]Record),
	}, nil
}

// Add buffers one record under its calendar day.
func (l *Ledger) Add(rec Record) {
	key := rec.dayKey()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = append(l.buckets[key], rec)
}

// FlushDay writes the buffered records for the given day key (YYYY_MM_DD)
// to <dir>/<key>.csv and clears the bucket. The header row is written only
// when the file is newly created; otherwise rows are appended. Flushing a
// day with no buffered records is a no-op.
func (l *Ledger) FlushDay(key string) error {
	l.mu.Lock()
	records := l.buckets[key]
	delete(l.buckets, key)
	l.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	path := filepath.Join(l.dir, key+".csv")
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open status file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write status header: %w", err)
		}
	}
	for _, rec := range records {
		row := []string{
			rec.Camera,
			rec.IntervalStart.Local().Format(timestampLayout),
			rec.IntervalEnd.Local().Format(timestampLayout),
			rec.Filename,
			rec.DownloadStatus,
			rec.UploadStatus,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write status record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush status file %s: %w", path, err)
	}

	slog.Info("wrote status records", "file", path, "records", len(records))
	return nil
}

// FlushAll flushes every buffered day. Must run on every exit path of a run
// so no recorded outcome is lost.
func (l *Ledger) FlushAll() error {
	l.mu.Lock()
	keys := make([]string, 0, len(l.buckets))
	for key := range l.buckets {
		keys = append(keys, key)
	}
	l.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		if err := l.FlushDay(key); err != nil {
			return err
		}
	}
	return nil
}
