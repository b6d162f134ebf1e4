package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detailCmd)
}

func printJson(cmd *cobra.Command, raw []byte) error {
	var out bytes.Buffer
	err := json.Indent(&out, raw, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return err
}

var detailCmd = &cobra.Command{
	Use:   "detail <article url>",
	Short: "Print the full engagement payload of an article as json.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := setupClient()
		if err != nil {
			return err
		}

		payload, err := client.AppMsgExt(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := payload.Check(); err != nil {
			slog.Warn("payload does not look valid", "err", err.Error())
		}
		return printJson(cmd, payload.Raw)
	},
}
