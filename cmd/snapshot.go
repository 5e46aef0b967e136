package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"camarchive/pkg/utils"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [dest]",
	Short: "Capture a snapshot from each camera",
	Long: `Capture a current still image from one or more cameras and write it to
the destination directory. The same local-write, S3 mirroring, and status
recording rules as the download command apply; the recorded interval
collapses to the snapshot instant.`,
	Example: `  # Snapshot every camera
  camarchive snapshot /archive/snapshots

  # Snapshot selected cameras and mirror to S3
  camarchive snapshot /archive/snapshots --cameras cam1 --s3-bucket camera-archive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot(cmd, args)
	},
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	dest := args[0]
	cameraSelector, _ := cmd.Flags().GetString("cameras")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	arch, cameras, err := buildArchiver(ctx, cmd, dest, cameraSelector)
	if err != nil {
		utils.PrintError(err, "snapshot")
		return err
	}

	at := time.Now()
	if isVerbose(cmd) {
		cmd.Printf("Capturing snapshots at %s for %d camera(s)\n", at.Format(time.RFC3339), len(cameras))
	}

	runErr := arch.DownloadSnapshots(ctx, cameras, at)

	if err := utils.PrintJSON(arch.Report()); err != nil {
		utils.PrintError(err, "snapshot")
	}

	if runErr != nil {
		utils.PrintError(runErr, "snapshot")
		return runErr
	}
	return nil
}

func init() {
	addPipelineFlags(snapshotCmd)
}
