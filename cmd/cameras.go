package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"camarchive/internal/models"
	"camarchive/pkg/utils"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List the cameras known to the NVR",
	Example: `  # List all cameras as JSON
  camarchive cameras --address 192.168.1.1 --username admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCameras(cmd)
	},
}

func runCameras(cmd *cobra.Command) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	session, err := newSession(ctx)
	if err != nil {
		utils.PrintError(err, "cameras")
		return err
	}

	cameras, err := session.ListCameras(ctx)
	if err != nil {
		utils.PrintError(err, "cameras")
		return err
	}

	list := models.CameraList{Count: len(cameras)}
	for _, camera := range cameras {
		list.Cameras = append(list.Cameras, models.CameraInfo{ID: camera.ID, Name: camera.Name})
	}

	if err := utils.PrintJSON(list); err != nil {
		utils.PrintError(err, "cameras")
		return err
	}
	return nil
}

func init() {
	camerasCmd.Flags().Duration("timeout", time.Minute, "Timeout for the operation")
}
