package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var articlesSearch string

func init() {
	articlesCmd.Flags().StringVar(&articlesSearch, "search", "", "Only list articles whose title or account resembles this.")
	rootCmd.AddCommand(articlesCmd)
}

var articlesCmd = &cobra.Command{
	Use:   "articles [--search <text>]",
	Short: "List tracked articles.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, closeDb, err := setupTracker()
		if err != nil {
			return err
		}
		defer closeDb()

		articles, err := t.Search(cmd.Context(), articlesSearch)
		if err != nil {
			return err
		}

		out := newTable(cmd.OutOrStdout())
		out.AppendHeader(table.Row{"Account", "Title", "Tracked since", "Url"})
		for _, article := range articles {
			out.AppendRow(table.Row{
				article.Account,
				article.Title,
				formatUnix(article.CreatedAt),
				article.Url,
			})
		}
		out.Render()
		return nil
	},
}
