package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"camarchive/internal/archiver"
	"camarchive/internal/protect"
	"camarchive/internal/status"
	"camarchive/internal/uploader"
	"camarchive/pkg/utils"
)

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
}

var downloadCmd = &cobra.Command{
	Use:   "download [dest]",
	Short: "Download footage for a time range",
	Long: `Download recorded footage between --start and --end for one or more
cameras to the destination directory.

The range is split into segments of at most one hour, aligned to absolute
hour marks by default. Each segment is downloaded with retries, written
atomically to disk, optionally mirrored to S3, and recorded in the daily
status CSV when --status-csv-dir is set.`,
	Example: `  # Archive yesterday's footage for all cameras
  camarchive download /archive --start 2024-05-01 --end 2024-05-02

  # Specific cameras, organized into date subfolders
  camarchive download /archive --start "2024-05-01 08:00:00" --end "2024-05-01 12:00:00" \
    --cameras cam1,cam2 --use-subfolders

  # Resumable nightly run with an audit trail and S3 mirror
  camarchive download /archive --start 2024-05-01 --end 2024-05-02 \
    --skip-existing-files --ignore-failed-downloads \
    --status-csv-dir /archive/status --s3-bucket camera-archive --s3-prefix nvr1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd, args)
	},
}

func runDownload(cmd *cobra.Command, args []string) error {
	dest := args[0]

	start, err := parseTimeFlag(cmd, "start")
	if err != nil {
		utils.PrintError(err, "download")
		return err
	}
	end, err := parseTimeFlag(cmd, "end")
	if err != nil {
		utils.PrintError(err, "download")
		return err
	}
	if !start.Before(end) {
		utils.PrintError(archiver.ErrInvalidRange, "download")
		return archiver.ErrInvalidRange
	}

	disableAlignment, _ := cmd.Flags().GetBool("disable-alignment")
	disableSplitting, _ := cmd.Flags().GetBool("disable-splitting")
	cameraSelector, _ := cmd.Flags().GetString("cameras")

	if disableSplitting && end.Sub(start) > time.Hour {
		slog.Warn("splitting disabled for a range longer than one hour; large exports can overload the appliance",
			"range", end.Sub(start).String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	arch, cameras, err := buildArchiver(ctx, cmd, dest, cameraSelector)
	if err != nil {
		utils.PrintError(err, "download")
		return err
	}

	if isVerbose(cmd) {
		cmd.Printf("Downloading footage between %s and %s for %d camera(s)\n",
			start.Format(time.RFC3339), end.Format(time.RFC3339), len(cameras))
	}

	runErr := arch.DownloadFootage(ctx, cameras, start, end, disableAlignment, disableSplitting)

	if err := utils.PrintJSON(arch.Report()); err != nil {
		utils.PrintError(err, "download")
	}

	if runErr != nil {
		utils.PrintError(runErr, "download")
		return runErr
	}
	return nil
}

// buildArchiver opens the NVR session, resolves the camera selection, and
// wires up the archiver with the optional S3 uploader and status ledger.
func buildArchiver(ctx context.Context, cmd *cobra.Command, dest, cameraSelector string) (*archiver.Archiver, []protect.Camera, error) {
	// Flag overrides must land in cfg before the session's HTTP client is
	// built from it; the request timeout in particular is baked into the
	// client at construction.
	opts, err := archiverOptions(cmd, dest)
	if err != nil {
		return nil, nil, err
	}

	session, err := newSession(ctx)
	if err != nil {
		return nil, nil, err
	}

	cameras, err := session.ListCameras(ctx)
	if err != nil {
		return nil, nil, err
	}

	cameras = filterCameras(cameras, cameraSelector)
	if len(cameras) == 0 {
		return nil, nil, errors.New("no cameras matched the selection")
	}

	var up archiver.Uploader
	if bucket := flagOrConfig(cmd, "s3-bucket", cfg.S3Bucket); bucket != "" {
		s3up, err := uploader.New(ctx, uploader.Config{
			Bucket:    bucket,
			Prefix:    flagOrConfig(cmd, "s3-prefix", cfg.S3Prefix),
			Region:    flagOrConfig(cmd, "s3-region", cfg.S3Region),
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		}, dest)
		if err != nil {
			return nil, nil, err
		}
		up = s3up
		if isVerbose(cmd) {
			cmd.Printf("S3 mirroring enabled: s3://%s\n", bucket)
		}
	}

	var ledger *status.Ledger
	if dir := flagOrConfig(cmd, "status-csv-dir", cfg.StatusCSVDir); dir != "" {
		ledger, err = status.NewLedger(dir)
		if err != nil {
			return nil, nil, err
		}
	}

	return archiver.New(session, opts, up, ledger), cameras, nil
}

func archiverOptions(cmd *cobra.Command, dest string) (archiver.Options, error) {
	opts := archiver.Options{
		DestinationPath: dest,
		DownloadWait:    cfg.DownloadWait,
		Workers:         cfg.Workers,
		Retry: archiver.RetryPolicy{
			Attempts:   cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			MaxBackoff: cfg.RetryMaxBackoff,
		},
	}

	opts.UseSubfolders, _ = cmd.Flags().GetBool("use-subfolders")
	opts.SkipExisting, _ = cmd.Flags().GetBool("skip-existing-files")
	opts.TouchFiles, _ = cmd.Flags().GetBool("touch-files")
	opts.IgnoreFailedDownloads, _ = cmd.Flags().GetBool("ignore-failed-downloads")
	opts.UseUTCFilenames, _ = cmd.Flags().GetBool("use-utc-filenames")
	opts.UploadExisting, _ = cmd.Flags().GetBool("s3-upload-existing")

	if cmd.Flags().Changed("wait-between-downloads") {
		opts.DownloadWait, _ = cmd.Flags().GetDuration("wait-between-downloads")
	}
	if cmd.Flags().Changed("max-retries") {
		opts.Retry.Attempts, _ = cmd.Flags().GetInt("max-retries")
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("download-request-timeout") {
		timeout, _ := cmd.Flags().GetDuration("download-request-timeout")
		cfg.DownloadTimeout = timeout
	}

	return opts, nil
}

func flagOrConfig(cmd *cobra.Command, name, configValue string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return configValue
}

func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s value %q", name, raw)
}

// addPipelineFlags registers the flags shared by the download and snapshot
// commands.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("cameras", "all", "Comma-separated camera IDs, or 'all'")
	cmd.Flags().Bool("use-subfolders", false, "Store files under YYYY/MM/DD/<camera>/ subfolders")
	cmd.Flags().Bool("skip-existing-files", false, "Skip downloads whose target file already exists")
	cmd.Flags().Bool("touch-files", false, "Leave a zero-byte placeholder for segments that failed to download")
	cmd.Flags().Bool("ignore-failed-downloads", false, "Record failed downloads and continue instead of aborting")
	cmd.Flags().Bool("use-utc-filenames", false, "Use UTC timestamps in file names instead of local time")
	cmd.Flags().Duration("wait-between-downloads", 0, "Pause between requests to reduce appliance load")
	cmd.Flags().Duration("download-request-timeout", 60*time.Second, "Per-request timeout")
	cmd.Flags().Int("max-retries", 3, "Maximum download attempts per segment")
	cmd.Flags().Int("workers", 1, "Number of cameras processed in parallel")
	cmd.Flags().String("s3-bucket", "", "S3 bucket for mirroring; enables upload when set")
	cmd.Flags().String("s3-prefix", "", "Key prefix for uploaded files")
	cmd.Flags().String("s3-region", "", "AWS region of the bucket")
	cmd.Flags().Bool("s3-upload-existing", false, "Also mirror files that were skipped as already present")
	cmd.Flags().String("status-csv-dir", "", "Directory for daily status CSV files (YYYY_MM_DD.csv)")
}

func init() {
	downloadCmd.Flags().String("start", "", "Range start time (e.g. 2024-05-01 or \"2024-05-01 08:00:00\")")
	downloadCmd.Flags().String("end", "", "Range end time")
	downloadCmd.Flags().Bool("disable-alignment", false, "Do not snap segment boundaries to absolute hours")
	downloadCmd.Flags().Bool("disable-splitting", false, "Request the whole range as one export. Use with caution: exports much longer than an hour can overload the appliance")
	addPipelineFlags(downloadCmd)
}
