package archiver

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// failingReader errors after yielding some bytes, simulating a connection
// dropped mid-download.
type failingReader struct {
	data []byte
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, r.err
}

func TestSinkPersist(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)

	target := filepath.Join(dir, "2024", "05", "01", "cam", "file.mp4")
	content := "fake mp4 payload"

	n, err := sink.Persist(strings.NewReader(content), target)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("Persist() wrote %d bytes, want %d", n, len(content))
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading persisted file: %v", err)
	}
	if string(got) != content {
		t.Errorf("persisted content = %q, want %q", got, content)
	}
}

func TestSinkPersistOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	target := filepath.Join(dir, "file.mp4")

	if _, err := sink.Persist(strings.NewReader("old"), target); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if _, err := sink.Persist(strings.NewReader("new content"), target); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "new content" {
		t.Errorf("persisted content = %q, want %q", got, "new content")
	}
}

func TestSinkPersistLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	target := filepath.Join(dir, "file.mp4")

	reader := &failingReader{data: []byte("partial"), err: errors.New("connection reset")}
	if _, err := sink.Persist(reader, target); err == nil {
		t.Fatal("Persist() succeeded, want error")
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target file exists after failed persist")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("directory not empty after failed persist: %v", entries)
	}
}

func TestSinkTouch(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	target := filepath.Join(dir, "sub", "file.mp4")

	if err := sink.Touch(target); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat touched file: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("touched file size = %d, want 0", info.Size())
	}

	// Touching an existing file must not truncate it.
	full := filepath.Join(dir, "existing.mp4")
	if _, err := sink.Persist(strings.NewReader("data"), full); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := sink.Touch(full); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	got, _ := os.ReadFile(full)
	if string(got) != "data" {
		t.Errorf("Touch() truncated existing file: %q", got)
	}
}

func TestSinkExists(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)

	missing := filepath.Join(dir, "missing.mp4")
	if sink.Exists(missing) {
		t.Error("Exists() true for missing file")
	}

	empty := filepath.Join(dir, "empty.mp4")
	if err := sink.Touch(empty); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if sink.Exists(empty) {
		t.Error("Exists() true for zero-byte file")
	}

	full := filepath.Join(dir, "full.mp4")
	if _, err := sink.Persist(io.LimitReader(strings.NewReader("abc"), 3), full); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if !sink.Exists(full) {
		t.Error("Exists() false for nonzero-size file")
	}
}
