package commands

import (
	"log/slog"

	"mpstats/internal/scrapers/mpweixin"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var commentsJson bool

func init() {
	commentsCmd.Flags().BoolVar(&commentsJson, "json", false, "Print the payload as json instead of a table.")
	rootCmd.AddCommand(commentsCmd)
}

func renderComments(cmd *cobra.Command, comments mpweixin.CommentPage) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Time", "Nickname", "Likes", "Content", "Replies"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Content", WidthMax: 60},
		{Name: "Likes", Align: text.AlignRight},
	})
	for _, comment := range comments.ElectedComment {
		t.AppendRow(table.Row{
			comment.Created().Format("2006-01-02 15:04"),
			comment.NickName,
			comment.LikeNum,
			comment.Content,
			len(comment.Reply.ReplyList),
		})
	}
	t.AppendFooter(table.Row{"", "Total", comments.ElectedCommentTotal})
	t.Render()
}

var commentsCmd = &cobra.Command{
	Use:   "comments <article url> [--json]",
	Short: "Print the elected comments of an article.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := setupClient()
		if err != nil {
			return err
		}

		comments, err := client.Comments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := comments.Check(); err != nil {
			slog.Warn("payload does not look valid", "err", err.Error())
		}

		if commentsJson {
			return printJson(cmd, comments.Raw)
		}
		renderComments(cmd, comments)
		return nil
	},
}
