package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/jwaldner/folio/internal/handlers"
)

// serveCmd holds the flags for the 'serve' subcommand.
type serveCmd struct {
	file       string
	addr       string
	configPath string
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string {
	return "run the web dashboard (deprecated, prefer the CLI commands)"
}
func (*serveCmd) Usage() string {
	return `folio serve -file <positions.csv> [-addr :8080] [-config <folio.yaml>]

  Serves the JSON dashboard endpoints over the same analysis engine the
  CLI uses. Deprecated: kept for existing bookmarks, gets no new
  features.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Positions CSV export to serve.")
	f.StringVar(&c.addr, "addr", "", "Listen address (default :PORT from config).")
	f.StringVar(&c.configPath, "config", "", "Config file (default folio.yaml).")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "serve: -file is required")
		return subcommands.ExitUsageError
	}

	app, err := newApp(c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	addr := c.addr
	if addr == "" {
		addr = ":" + app.cfg.Port
	}

	dashboard := handlers.NewDashboard(c.file, app.analyzer, app.provider, app.log)
	server := &http.Server{
		Addr:         addr,
		Handler:      dashboard.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	app.log.Warn().Str("addr", addr).
		Msg("dashboard is deprecated, prefer the summary and position commands")
	app.log.Info().Str("addr", addr).Str("file", c.file).Msg("dashboard listening")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
