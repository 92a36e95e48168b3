package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwaldner/folio/internal/analysis"
	"github.com/jwaldner/folio/internal/config"
	"github.com/jwaldner/folio/internal/logger"
	"github.com/jwaldner/folio/internal/pricing"
	"github.com/jwaldner/folio/internal/providers"
	"github.com/jwaldner/folio/internal/providers/alpaca"
	"github.com/jwaldner/folio/internal/treasury"
)

// app is the shared wiring every command builds once: config, logger,
// market data provider, rate source, pricing model, analyzer.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider providers.MarketDataProvider
	analyzer *analysis.Analyzer
}

// newApp loads configuration and constructs the analysis stack. The
// provider and rate source are injected into the analyzer here and
// nowhere else; commands and handlers only ever see the capability
// interfaces.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Logging.LogLevel, cfg.Logging.LogFile)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	var rates treasury.RateSource
	if cfg.RiskFreeRate >= 0 {
		rates = treasury.FixedRate(cfg.RiskFreeRate)
		log.Info().Float64("rate", cfg.RiskFreeRate).Msg("using configured risk-free rate")
	} else {
		rates = treasury.NewClient(log)
	}

	model := pricing.NewModel(cfg.DividendYield, log)
	analyzer := analysis.New(model, rates, log)
	analyzer.Strict = cfg.Strict

	return &app{
		cfg:      cfg,
		log:      log,
		provider: alpaca.New(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey),
		analyzer: analyzer,
	}, nil
}

// snapshot returns a fresh memoizing market data manager. One snapshot
// per summary keeps totals reproducible within a run.
func (a *app) snapshot() *providers.Manager {
	return providers.NewManager(a.provider, a.log)
}
