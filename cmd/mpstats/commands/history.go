package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <article url>",
	Short: "Print the recorded snapshots of a tracked article.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, closeDb, err := setupTracker()
		if err != nil {
			return err
		}
		defer closeDb()

		article, snapshots, err := t.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := newTable(cmd.OutOrStdout())
		out.SetTitle(article.Title)
		out.AppendHeader(table.Row{"Time", "Read", "New reads", "Like", "Comments"})
		var previous int64
		for i, snapshot := range snapshots {
			delta := ""
			if i > 0 {
				delta = fmt.Sprintf("%+d", snapshot.ReadNum-previous)
			}
			previous = snapshot.ReadNum

			out.AppendRow(table.Row{
				formatUnix(snapshot.Time),
				snapshot.ReadNum,
				delta,
				snapshot.LikeNum,
				snapshot.CommentCount,
			})
		}
		out.Render()
		return nil
	},
}
