package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(untrackCmd)
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <article url>",
	Short: "Stop tracking an article and delete its history.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, closeDb, err := setupTracker()
		if err != nil {
			return err
		}
		defer closeDb()

		err = t.Untrack(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		slog.Info("untracked article", "url", args[0])
		return nil
	},
}
