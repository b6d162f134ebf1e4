package main

import (
	"context"
	"os"

	"mpstats/cmd/mpstats/commands"
	"mpstats/internal/components/telemetry"
	"mpstats/pkg/serviceutil"
)

func main() {
	ctx := context.Background()

	telemetry.InitSlog(false)
	t, err := telemetry.SetupFromEnv(ctx, "mpstats")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)
	t.Shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}
