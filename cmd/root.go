package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"camarchive/config"
	"camarchive/internal/protect"
)

var (
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "camarchive",
	Short: "Archive camera footage from an NVR",
	Long: `camarchive downloads recorded footage and snapshots from a local NVR
appliance to disk, optionally mirrors them to S3-compatible object storage,
and keeps a daily CSV audit trail of every downloaded segment.
Configuration is loaded from a .env file, environment variables, or an
optional YAML config file; command-line flags override all of them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyGlobalFlags(cmd)
	},
}

func Execute(config *config.Config) error {
	cfg = config
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(camerasCmd)
	rootCmd.AddCommand(eventsCmd)

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("address", "", "IP address or hostname of the NVR")
	rootCmd.PersistentFlags().Int("port", 0, "NVR API port (default 443, or 7443 with --legacy)")
	rootCmd.PersistentFlags().String("username", "", "Username with local NVR access")
	rootCmd.PersistentFlags().String("password", "", "Password for the NVR user")
	rootCmd.PersistentFlags().Bool("verify-ssl", false, "Verify the NVR TLS certificate")
	rootCmd.PersistentFlags().Bool("legacy", false, "Use the pre-UniFi-OS API variant")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

// applyGlobalFlags merges the optional config file and connection flag
// overrides into cfg before any command runs.
func applyGlobalFlags(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return err
		}
	}

	if v, _ := cmd.Flags().GetString("address"); v != "" {
		cfg.Address = v
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if v, _ := cmd.Flags().GetString("username"); v != "" {
		cfg.Username = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		cfg.Password = v
	}
	if cmd.Flags().Changed("verify-ssl") {
		cfg.VerifySSL, _ = cmd.Flags().GetBool("verify-ssl")
	}
	if cmd.Flags().Changed("legacy") {
		cfg.Legacy, _ = cmd.Flags().GetBool("legacy")
	}
	return nil
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

// newSession validates the NVR settings and opens an authenticated session.
func newSession(ctx context.Context) (protect.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return protect.NewSession(ctx, protect.Options{
		Address:   cfg.Address,
		Port:      cfg.Port,
		Username:  cfg.Username,
		Password:  cfg.Password,
		VerifySSL: cfg.VerifySSL,
		Timeout:   cfg.DownloadTimeout,
	}, cfg.Legacy)
}

// selectorIDs parses a comma-separated camera ID selection. "all" (or empty)
// means no narrowing and yields nil.
func selectorIDs(selector string) []string {
	if selector == "" || selector == "all" {
		return nil
	}

	var ids []string
	for _, id := range strings.Split(selector, ",") {
		ids = append(ids, strings.TrimSpace(id))
	}
	return ids
}

// filterCameras narrows the camera list to a comma-separated ID selection.
// The selector "all" (or empty) keeps every camera.
func filterCameras(cameras []protect.Camera, selector string) []protect.Camera {
	ids := selectorIDs(selector)
	if ids == nil {
		return cameras
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var filtered []protect.Camera
	for _, camera := range cameras {
		if wanted[camera.ID] {
			filtered = append(filtered, camera)
		}
	}
	return filtered
}
