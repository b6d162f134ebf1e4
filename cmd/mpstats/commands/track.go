package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mpstats/internal/components/chrono"
	"mpstats/internal/components/telemetry"
	"mpstats/internal/tracker"
	"mpstats/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var trackCron string

func init() {
	trackCmd.Flags().StringVar(&trackCron, "cron", "", "Keep running and snapshot every tracked article on this cron schedule (ex. \"0 * * * *\").")
	rootCmd.AddCommand(trackCmd)
}

func trackArgs(cmd *cobra.Command, t tracker.Tracker, urls []string) error {
	out := newTable(cmd.OutOrStdout())
	out.AppendHeader(table.Row{"Article", "Read", "Like", "Comments"})
	defer out.Render()

	for _, articleUrl := range urls {
		snapshot, err := t.Track(cmd.Context(), articleUrl)
		if err != nil {
			return fmt.Errorf("track %s: %w", articleUrl, err)
		}
		out.AppendRow(table.Row{articleUrl, snapshot.ReadNum, snapshot.LikeNum, snapshot.CommentCount})
	}
	return nil
}

func runCron(ctx context.Context, t tracker.Tracker, spec string) error {
	ctx = serviceutil.SignalContext(ctx)
	tel := telemetry.SlogAPI{}

	telemetry.InstrumentPerfStats(ctx, tel, time.Minute)

	cron := chrono.NewStandardCron(tel)
	err := cron.Cron(spec, func() {
		start := time.Now()
		err := t.TrackAll(ctx)
		if err != nil {
			slog.Warn("some articles failed to update", "err", err.Error())
		}
		slog.Info("updated tracked articles", "duration", time.Since(start).String())
	})
	if err != nil {
		return err
	}

	slog.Info("tracking on schedule, press ctrl+c to stop", "cron", spec)
	<-ctx.Done()
	<-cron.Stop().Done()
	return nil
}

var trackCmd = &cobra.Command{
	Use:   "track [article url...] [--cron <spec>]",
	Short: "Record a snapshot of the engagement of articles.",
	Long: `Record a snapshot of the engagement of articles into the database.

Given urls are registered and snapshotted, without urls every tracked article is
snapshotted. With --cron the command keeps running and snapshots every tracked
article on the schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trackCron != "" {
			err := chrono.ValidateSpec(trackCron)
			if err != nil {
				return fmt.Errorf("invalid cron schedule: %w", err)
			}
		}

		t, closeDb, err := setupTracker()
		if err != nil {
			return err
		}
		defer closeDb()

		if len(args) > 0 {
			err = trackArgs(cmd, t, args)
		} else if trackCron == "" {
			err = t.TrackAll(cmd.Context())
		}
		if err != nil {
			return err
		}

		if trackCron == "" {
			return nil
		}
		return runCron(cmd.Context(), t, trackCron)
	},
}
