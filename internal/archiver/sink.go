package archiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink persists retrieved byte streams beneath a destination root.
type Sink struct {
	root string
}

// NewSink returns a Sink writing beneath root.
func NewSink(root string) *Sink {
	return &Sink{root: root}
}

// Root returns the destination root directory.
func (s *Sink) Root() string {
	return s.root
}

// Persist writes r to target, creating intermediate directories as needed.
// The stream is written to a temporary file in the target directory and
// renamed into place only after a complete write, so a failure never leaves
// a partial file at target. Returns the number of bytes written.
func (s *Sink) Persist(r io.Reader, target string) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".camarchive-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", target, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("place %s: %w", target, err)
	}

	return n, nil
}

// Touch creates an empty placeholder file at target unless a file already
// exists there. Used to mark segments as handled when no footage was fetched.
func (s *Sink) Touch(target string) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", target, err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("touch %s: %w", target, err)
	}
	return f.Close()
}

// Exists reports whether a nonzero-size file is already present at target.
func (s *Sink) Exists(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
