// Package archiver implements the footage retrieval pipeline: splitting
// requested time ranges into segments, downloading each segment with
// retries, persisting to local disk, optionally mirroring to object
// storage, and recording a per-segment audit trail.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"camarchive/internal/models"
	"camarchive/internal/protect"
	"camarchive/internal/status"
)

// RetryPolicy bounds the per-segment download retry loop.
type RetryPolicy struct {
	// Attempts is the maximum number of attempts per segment.
	// Default: 3
	Attempts int

	// Backoff is the wait before the second attempt; later waits double,
	// capped at MaxBackoff, with jitter.
	// Default: 1s
	Backoff time.Duration

	// MaxBackoff caps the backoff growth.
	// Default: 30s
	MaxBackoff time.Duration
}

// Options configures an archiving run.
type Options struct {
	// DestinationPath is the local root all footage is written beneath.
	DestinationPath string

	// UseSubfolders stores files under YYYY/MM/DD/<camera>/ below the root.
	UseSubfolders bool

	// SkipExisting skips the download entirely when a nonzero-size file is
	// already present at the target path.
	SkipExisting bool

	// TouchFiles leaves a zero-byte placeholder at the target path for
	// segments whose footage could not be fetched.
	TouchFiles bool

	// IgnoreFailedDownloads records a failed segment and continues with
	// the run instead of aborting. Authentication failures always abort.
	IgnoreFailedDownloads bool

	// UseUTCFilenames renders filename timestamps in UTC instead of local
	// time.
	UseUTCFilenames bool

	// UploadExisting mirrors skipped (already present) files to object
	// storage as well. Off by default: skipped segments are normally
	// recorded with upload_status=not_attempted.
	UploadExisting bool

	// DownloadWait is an optional pause after each appliance request, to
	// reduce load on the source.
	DownloadWait time.Duration

	Retry RetryPolicy

	// Workers is the number of cameras processed in parallel. Default 1:
	// the sequential baseline. Segments of one camera are always processed
	// in order regardless of this setting.
	Workers int
}

// Uploader mirrors a persisted local file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

// Archiver drives one retrieval run against a Session.
type Archiver struct {
	session  protect.Session
	sink     *Sink
	uploader Uploader       // nil disables mirroring
	ledger   *status.Ledger // nil disables the audit trail
	stats    *Stats
	opts     Options
}

// New returns an Archiver. uploader and ledger may be nil to disable the
// corresponding step.
func New(session protect.Session, opts Options, uploader Uploader, ledger *status.Ledger) *Archiver {
	if opts.Retry.Attempts <= 0 {
		opts.Retry.Attempts = 3
	}
	if opts.Retry.Backoff <= 0 {
		opts.Retry.Backoff = time.Second
	}
	if opts.Retry.MaxBackoff <= 0 {
		opts.Retry.MaxBackoff = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Archiver{
		session:  session,
		sink:     NewSink(opts.DestinationPath),
		uploader: uploader,
		ledger:   ledger,
		stats:    NewStats(),
		opts:     opts,
	}
}

// Report returns the run counters collected so far.
func (a *Archiver) Report() models.RunReport {
	return a.stats.Report()
}

// DownloadFootage archives the [start, end) range for every given camera.
// Buffered status records are flushed on every exit path, including fatal
// errors.
func (a *Archiver) DownloadFootage(ctx context.Context, cameras []protect.Camera, start, end time.Time, disableAlignment, disableSplitting bool) (err error) {
	if !start.Before(end) {
		return ErrInvalidRange
	}
	defer a.flushLedger(&err)

	return a.runCameras(ctx, cameras, func(ctx context.Context, camera protect.Camera) error {
		return a.archiveCamera(ctx, camera, start, end, disableAlignment, disableSplitting)
	})
}

// DownloadSnapshots captures one snapshot per camera, taken at instant at.
// The same local-write, upload, and status-recording rules apply as for
// footage, with the record interval collapsed to the snapshot instant.
func (a *Archiver) DownloadSnapshots(ctx context.Context, cameras []protect.Camera, at time.Time) (err error) {
	defer a.flushLedger(&err)

	return a.runCameras(ctx, cameras, func(ctx context.Context, camera protect.Camera) error {
		target := snapshotPath(a.sink.Root(), camera.Name, at, a.opts.UseSubfolders, a.opts.UseUTCFilenames)
		return a.processItem(ctx, camera, at, at, target, func(ctx context.Context) (io.ReadCloser, error) {
			return a.session.CaptureSnapshot(ctx, camera.ID)
		})
	})
}

func (a *Archiver) archiveCamera(ctx context.Context, camera protect.Camera, start, end time.Time, disableAlignment, disableSplitting bool) error {
	segments, err := SplitRange(camera, start, end, disableAlignment, disableSplitting)
	if err != nil {
		return err
	}

	slog.Info("archiving camera", "camera", camera.Name, "segments", len(segments))

	for _, seg := range segments {
		target := footagePath(a.sink.Root(), seg, a.opts.UseSubfolders, a.opts.UseUTCFilenames)
		fetch := func(ctx context.Context) (io.ReadCloser, error) {
			return a.session.ExportFootage(ctx, seg.Camera.ID, seg.Start, seg.End)
		}
		if err := a.processItem(ctx, camera, seg.Start, seg.End, target, fetch); err != nil {
			return err
		}
	}
	return nil
}

// processItem handles one retrieval unit end to end: skip check, download
// with retries, local persist, optional upload, status record, optional
// inter-request pause. Exactly one status record is written per call.
func (a *Archiver) processItem(ctx context.Context, camera protect.Camera, intervalStart, intervalEnd time.Time, target string, fetch func(context.Context) (io.ReadCloser, error)) error {
	if a.opts.SkipExisting && a.sink.Exists(target) {
		slog.Info("skipping existing file", "file", target)
		a.stats.recordSkipped()

		uploadStatus := status.UploadNotAttempted
		if a.opts.UploadExisting && a.uploader != nil {
			uploadStatus = a.upload(ctx, target)
		}
		a.record(camera.Name, intervalStart, intervalEnd, target, status.DownloadSkipped, uploadStatus)
		return nil
	}

	bytes, err := a.download(ctx, target, fetch)
	if err != nil {
		a.stats.recordFailed()
		if a.opts.TouchFiles {
			if terr := a.sink.Touch(target); terr != nil {
				slog.Error("touch placeholder", "file", target, "error", terr)
			}
		}
		a.record(camera.Name, intervalStart, intervalEnd, target, status.DownloadFailed, status.UploadNotAttempted)

		if a.abortOn(ctx, err) {
			return err
		}
		slog.Warn("ignoring failed download", "file", target, "error", err)
		return a.pause(ctx)
	}

	a.stats.recordDownloaded(bytes)
	slog.Info("downloaded file", "file", target, "bytes", bytes)

	uploadStatus := status.UploadNotAttempted
	if a.uploader != nil {
		uploadStatus = a.upload(ctx, target)
	}
	a.record(camera.Name, intervalStart, intervalEnd, target, status.DownloadDownloaded, uploadStatus)

	return a.pause(ctx)
}

// download fetches one unit with the configured retry budget and persists
// it. Transient failures are retried with exponential backoff;
// authentication failures, permanent rejections, and local write errors are
// not.
func (a *Archiver) download(ctx context.Context, target string, fetch func(context.Context) (io.ReadCloser, error)) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= a.opts.Retry.Attempts; attempt++ {
		if attempt > 1 {
			if err := a.backoff(ctx, attempt); err != nil {
				return 0, err
			}
			slog.Warn("retrying download", "file", target, "attempt", attempt, "error", lastErr)
		}

		stream, err := fetch(ctx)
		if err != nil {
			if !protect.IsTransient(err) {
				return 0, err
			}
			lastErr = err
			continue
		}

		bytes, err := a.sink.Persist(stream, target)
		stream.Close()
		if err != nil {
			// Local write failure; retrying the download will not help.
			return 0, err
		}
		return bytes, nil
	}

	return 0, fmt.Errorf("download failed after %d attempts: %w", a.opts.Retry.Attempts, lastErr)
}

// abortOn reports whether err must abort the run even when failed downloads
// are being ignored.
func (a *Archiver) abortOn(ctx context.Context, err error) bool {
	if !a.opts.IgnoreFailedDownloads {
		return true
	}
	return errors.Is(err, protect.ErrUnauthorized) || ctx.Err() != nil
}

func (a *Archiver) upload(ctx context.Context, target string) string {
	if err := a.uploader.Upload(ctx, target); err != nil {
		slog.Error("upload failed", "file", target, "error", err)
		a.stats.recordUploadFailed()
		return status.UploadFailed
	}
	a.stats.recordUploaded()
	return status.UploadUploaded
}

func (a *Archiver) record(cameraName string, intervalStart, intervalEnd time.Time, target, downloadStatus, uploadStatus string) {
	if a.ledger == nil {
		return
	}
	a.ledger.Add(status.Record{
		Camera:         cameraName,
		IntervalStart:  intervalStart,
		IntervalEnd:    intervalEnd,
		Filename:       filepath.Base(target),
		DownloadStatus: downloadStatus,
		UploadStatus:   uploadStatus,
	})
}

// pause blocks for the configured inter-request delay.
func (a *Archiver) pause(ctx context.Context) error {
	if a.opts.DownloadWait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.opts.DownloadWait):
		return nil
	}
}

// backoff waits before retry attempt n (n >= 2): exponentially growing,
// capped, with 0.5x-1.5x jitter.
func (a *Archiver) backoff(ctx context.Context, attempt int) error {
	d := a.opts.Retry.Backoff * time.Duration(1<<uint(attempt-2))
	if d > a.opts.Retry.MaxBackoff || d <= 0 {
		d = a.opts.Retry.MaxBackoff
	}
	jittered := time.Duration(float64(d) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jittered):
		return nil
	}
}

// flushLedger flushes all buffered status records. Runs deferred on every
// orchestration exit path; a flush failure surfaces only when the run
// itself succeeded.
func (a *Archiver) flushLedger(errp *error) {
	if a.ledger == nil {
		return
	}
	if ferr := a.ledger.FlushAll(); ferr != nil {
		if *errp == nil {
			*errp = ferr
		} else {
			slog.Error("flush status ledger", "error", ferr)
		}
	}
}

// runCameras applies fn to every camera, sequentially by default or through
// a bounded worker pool when Workers > 1. The first fatal error cancels the
// remaining work and is returned.
func (a *Archiver) runCameras(ctx context.Context, cameras []protect.Camera, fn func(context.Context, protect.Camera) error) error {
	workers := a.opts.Workers
	if workers <= 1 || len(cameras) <= 1 {
		for _, camera := range cameras {
			if err := fn(ctx, camera); err != nil {
				return err
			}
		}
		return nil
	}
	if workers > len(cameras) {
		workers = len(cameras)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan protect.Camera)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for camera := range jobs {
				if runCtx.Err() != nil {
					return
				}
				if err := fn(runCtx, camera); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, camera := range cameras {
			select {
			case jobs <- camera:
			case <-runCtx.Done():
				return
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}
