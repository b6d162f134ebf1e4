package commands

import (
	"context"
	"fmt"
	"os"

	"mpstats/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string
)

var rootCmd = &cobra.Command{
	Use:           "mpstats",
	Short:         "mpstats reads the engagement statistics of WeChat official account articles.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "The config file with the session's token and cookie.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug information.")
	flags.StringVar(&dumpDir, "dump", "", "Write every http request and response into this directory.")
}

func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}
