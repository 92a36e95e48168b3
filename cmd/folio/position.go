package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/jwaldner/folio/internal/loader"
	"github.com/jwaldner/folio/internal/models"
)

// positionCmd holds the flags for the 'position' subcommand.
type positionCmd struct {
	file       string
	ticker     string
	configPath string
}

func (*positionCmd) Name() string     { return "position" }
func (*positionCmd) Synopsis() string { return "analyze the positions for a single ticker" }
func (*positionCmd) Usage() string {
	return `folio position -file <positions.csv> -ticker <SYMBOL> [-config <folio.yaml>]

  Runs the per-position analysis (delta and implied volatility for
  options, market and beta-adjusted exposure for everything) for every
  position matching the ticker.
`
}

func (c *positionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Positions CSV export to analyze.")
	f.StringVar(&c.ticker, "ticker", "", "Ticker to analyze.")
	f.StringVar(&c.configPath, "config", "", "Config file (default folio.yaml).")
}

func (c *positionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" || c.ticker == "" {
		fmt.Fprintln(os.Stderr, "position: -file and -ticker are required")
		return subcommands.ExitUsageError
	}
	ticker := strings.ToUpper(c.ticker)

	app, err := newApp(c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	pf, err := loader.LoadCSV(c.file, app.log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %q: %v\n", c.file, err)
		return subcommands.ExitFailure
	}

	md := app.snapshot()
	asOf := time.Now()
	found := false
	for _, pos := range pf.Positions {
		if pos.PositionTicker() != ticker {
			continue
		}
		found = true
		res, err := app.analyzer.Analyze(ctx, pos, md, pf, asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error analyzing %s (%s): %v\n", ticker, pos.Kind(), err)
			return subcommands.ExitFailure
		}
		printAnalysis(res)
	}

	if !found {
		fmt.Fprintf(os.Stderr, "No positions for %s in %s\n", ticker, c.file)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printAnalysis(a models.PositionAnalysis) {
	fmt.Printf("%s (%s)\n", a.Ticker, a.Kind)
	fmt.Printf("  %-24s %14.2f\n", "Market value", a.MarketValue)
	if a.Delta != nil {
		fmt.Printf("  %-24s %14.4f\n", "Delta", *a.Delta)
	}
	if a.ImpliedVolatility != nil {
		fmt.Printf("  %-24s %13.1f%%\n", "Implied volatility", *a.ImpliedVolatility*100)
	}
	if a.UnderlyingPrice != 0 {
		fmt.Printf("  %-24s %14.2f\n", "Underlying price", a.UnderlyingPrice)
	}
	fmt.Printf("  %-24s %14.2f\n", "Beta", a.Beta)
	fmt.Printf("  %-24s %14.2f\n", "Market exposure", a.MarketExposure)
	fmt.Printf("  %-24s %14.2f\n", "Beta-adjusted exposure", a.BetaAdjustedExposure)
	fmt.Println()
}
