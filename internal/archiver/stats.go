package archiver

import (
	"sync"
	"time"

	"camarchive/internal/models"
	"camarchive/pkg/utils"
)

// Stats accumulates run-wide counters. Safe for concurrent use so the
// camera worker pool can report from multiple goroutines.
type Stats struct {
	mu                sync.Mutex
	filesDownloaded   int64
	bytesDownloaded   int64
	filesSkipped      int64
	filesFailed       int64
	filesUploaded     int64
	filesUploadFailed int64
	startTime         time.Time
}

// NewStats returns a Stats with the run clock started.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) recordDownloaded(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesDownloaded++
	s.bytesDownloaded += bytes
}

func (s *Stats) recordSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesSkipped++
}

func (s *Stats) recordFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesFailed++
}

func (s *Stats) recordUploaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesUploaded++
}

func (s *Stats) recordUploadFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesUploadFailed++
}

// Report returns a snapshot of the counters for end-of-run output.
func (s *Stats) Report() models.RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.RunReport{
		FilesDownloaded:      s.filesDownloaded,
		BytesDownloaded:      s.bytesDownloaded,
		BytesDownloadedHuman: utils.FormatBytes(s.bytesDownloaded),
		FilesSkipped:         s.filesSkipped,
		FilesFailed:          s.filesFailed,
		FilesUploaded:        s.filesUploaded,
		FilesUploadFailed:    s.filesUploadFailed,
		OperationTime:        utils.FormatTime(s.startTime),
		RunDuration:          time.Since(s.startTime).Round(time.Millisecond).String(),
	}
}
