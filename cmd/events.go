package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"camarchive/internal/models"
	"camarchive/pkg/utils"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List motion events in a time range",
	Long: `List motion events recorded by the NVR between --start and --end as
JSON. Useful for deciding which intervals are worth archiving.`,
	Example: `  # Motion events for one day
  camarchive events --start 2024-05-01 --end 2024-05-02

  # Events from selected cameras only
  camarchive events --start 2024-05-01 --end 2024-05-02 --cameras cam1,cam2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvents(cmd)
	},
}

func runEvents(cmd *cobra.Command) error {
	start, err := parseTimeFlag(cmd, "start")
	if err != nil {
		utils.PrintError(err, "events")
		return err
	}
	end, err := parseTimeFlag(cmd, "end")
	if err != nil {
		utils.PrintError(err, "events")
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	session, err := newSession(ctx)
	if err != nil {
		utils.PrintError(err, "events")
		return err
	}

	selector, _ := cmd.Flags().GetString("cameras")

	events, err := session.ListMotionEvents(ctx, start, end, selectorIDs(selector))
	if err != nil {
		utils.PrintError(err, "events")
		return err
	}

	list := models.EventList{Count: len(events)}
	for _, event := range events {
		list.Events = append(list.Events, models.EventInfo{
			ID:     event.ID,
			Camera: event.CameraID,
			Type:   event.Type,
			Start:  utils.FormatTime(event.Start),
			End:    utils.FormatTime(event.End),
			Score:  event.Score,
		})
	}

	if err := utils.PrintJSON(list); err != nil {
		utils.PrintError(err, "events")
		return err
	}
	return nil
}

func init() {
	eventsCmd.Flags().String("start", "", "Range start time")
	eventsCmd.Flags().String("end", "", "Range end time")
	eventsCmd.Flags().String("cameras", "all", "Comma-separated camera IDs, or 'all'")
	eventsCmd.Flags().Duration("timeout", time.Minute, "Timeout for the operation")
}
