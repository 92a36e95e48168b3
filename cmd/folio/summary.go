package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/jwaldner/folio/internal/loader"
	"github.com/jwaldner/folio/internal/marketcal"
	"github.com/jwaldner/folio/internal/models"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	file       string
	configPath string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "aggregate a portfolio into exposure and beta totals" }
func (*summaryCmd) Usage() string {
	return `folio summary -file <positions.csv> [-config <folio.yaml>]

  Loads a positions export, resolves market data, and prints the
  portfolio summary: value breakdown, long/short exposure, net market
  exposure, beta-adjusted exposure and portfolio beta. Positions whose
  market data cannot be resolved are listed as degraded, never silently
  zeroed.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Positions CSV export to analyze.")
	f.StringVar(&c.configPath, "config", "", "Config file (default folio.yaml).")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "summary: -file is required")
		return subcommands.ExitUsageError
	}

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

	summary, err := app.analyzer.Summarize(ctx, pf, app.snapshot(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printSummary(summary)

	for _, pos := range pf.Positions {
		if pos.Kind() == models.KindOption {
			fmt.Printf("\n%-24s %14s\n", "Next monthly expiration",
				marketcal.NextMonthlyExpiration(time.Now()).Format("2006-01-02"))
			break
		}
	}
	return subcommands.ExitSuccess
}

// printSummary renders the summary as aligned field/value lines. All
// formatting lives here; the analysis core hands over plain numbers.
func printSummary(s models.PortfolioSummary) {
	row := func(name string, value float64) {
		fmt.Printf("%-24s %14.2f\n", name, value)
	}

	row("Total value", s.TotalValue)
	row("  Stock value", s.StockValue)
	row("  Option value", s.OptionValue)
	row("  Cash value", s.CashValue)
	if s.UnknownValue != 0 {
		row("  Unknown value", s.UnknownValue)
	}
	if s.PendingActivityValue != 0 {
		row("  Pending activity", s.PendingActivityValue)
	}
	fmt.Println()
	row("Long stock exposure", s.LongStockExposure)
	row("Short stock exposure", s.ShortStockExposure)
	row("Long option exposure", s.LongOptionExposure)
	row("Short option exposure", s.ShortOptionExposure)
	fmt.Println()
	row("Net market exposure", s.NetMarketExposure)
	fmt.Printf("%-24s %13.1f%%\n", "Net exposure", s.NetExposurePct*100)
	row("Beta-adjusted exposure", s.BetaAdjustedExposure)
	if s.PortfolioBeta != nil {
		fmt.Printf("%-24s %14.2f\n", "Portfolio beta", *s.PortfolioBeta)
	} else {
		fmt.Printf("%-24s %14s\n", "Portfolio beta", "n/a")
	}

	if len(s.Degraded) > 0 {
		fmt.Printf("\n%d position(s) excluded from exposure totals:\n", len(s.Degraded))
		for _, d := range s.Degraded {
			fmt.Printf("  %-8s %-7s %s\n", d.Ticker, d.Kind, d.Reason)
		}
	}
}
