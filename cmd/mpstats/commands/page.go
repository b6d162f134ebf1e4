package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pageCmd)
}

var pageCmd = &cobra.Command{
	Use:   "page <article url>",
	Short: "Print what is scraped from the article page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := setupClient()
		if err != nil {
			return err
		}

		page, err := client.Page(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendRows([]table.Row{
			{"Title", page.Title},
			{"Account", page.Account},
			{"Comment id", page.CommentId},
		})
		t.Render()
		return nil
	},
}
