package commands

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"mpstats/internal/components/chrono"
	"mpstats/internal/components/db"
	"mpstats/internal/components/telemetry"
	"mpstats/internal/scrapers/mpweixin"
	"mpstats/internal/tracker"
	"mpstats/pkg/configutil"
	"mpstats/pkg/migrations"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Config struct {
	// Token is the appmsg_token of a logged in session.
	Token  string `json:"token"`
	Cookie string `json:"cookie"`
	// Database is a sqlite file path or a libsql url.
	Database               string  `json:"database"`
	TimeoutSeconds         int     `json:"timeout_seconds"`
	RequestsPerSecond      float64 `json:"requests_per_second"`
	BrowserTLS             bool    `json:"browser_tls"`
	LegacyEngagementParams bool    `json:"legacy_engagement_params"`
}

// httpTransport replaces the client's transport when set.
var httpTransport http.RoundTripper

func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, requests are sent without a session", "path", configPath)
		err = nil
	}
	if err != nil {
		return Config{}, err
	}
	if cfg.Database == "" {
		cfg.Database = "mpstats.db"
	}
	return cfg, nil
}

func newClient(cfg Config) (*mpweixin.Client, error) {
	opts := mpweixin.ClientOptions{
		Token:                  cfg.Token,
		Cookie:                 cfg.Cookie,
		Timeout:                time.Duration(cfg.TimeoutSeconds) * time.Second,
		RequestsPerSecond:      cfg.RequestsPerSecond,
		BrowserTLS:             cfg.BrowserTLS,
		LegacyEngagementParams: cfg.LegacyEngagementParams,
		Transport:              httpTransport,
	}
	if dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(dumpDir)
		if err != nil {
			return nil, err
		}
		slog.Info("dumping http exchanges", "dir", output.Dir())
		opts.Dump = output
	}
	return mpweixin.NewClient(opts, telemetry.SlogAPI{})
}

func setupClient() (*mpweixin.Client, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	return newClient(cfg)
}

// setupTracker returns a tracker and a function that closes its database.
func setupTracker() (tracker.Tracker, func() error, error) {
	cfg, err := readConfig()
	if err != nil {
		return tracker.Tracker{}, nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return tracker.Tracker{}, nil, err
	}

	database, err := migrations.OpenAndApplySchema(db.Schema, cfg.Database)
	if err != nil {
		return tracker.Tracker{}, nil, err
	}

	t := tracker.New(
		db.New(database),
		db.NewMakeTx(database),
		client,
		chrono.NewStandardTime(),
		telemetry.SlogAPI{},
	)
	return t, database.Close, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func formatUnix(seconds int64) string {
	return chrono.FromUnix(seconds).Format(time.DateTime)
}
