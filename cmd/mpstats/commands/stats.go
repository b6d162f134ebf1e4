package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <article url>",
	Short: "Print the read and like counts of an article.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := setupClient()
		if err != nil {
			return err
		}

		read, like, err := client.ReadLikeNum(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Read", "Like"})
		t.AppendRow(table.Row{read, like})
		t.Render()
		return nil
	},
}
