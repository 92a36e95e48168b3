// Package analysis orchestrates the pricing, implied volatility and
// exposure calculations over positions and portfolios. The per-position
// analyzer and the portfolio aggregator share one option resolution path
// (resolveOption); there is deliberately no second place where an option's
// delta or exposure is derived. The previous generation of this system
// carried two parallel engines whose numbers drifted apart — that is the
// defect this package structure exists to prevent.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwaldner/folio/internal/exposure"
	"github.com/jwaldner/folio/internal/marketcal"
	"github.com/jwaldner/folio/internal/models"
	"github.com/jwaldner/folio/internal/pricing"
	"github.com/jwaldner/folio/internal/providers"
	"github.com/jwaldner/folio/internal/treasury"
)

// Analyzer computes Greeks and exposures for positions. It owns no market
// data: prices, betas and the risk-free rate are injected capabilities so
// tests run on deterministic fixtures.
type Analyzer struct {
	model *pricing.Model
	rates treasury.RateSource
	log   zerolog.Logger

	// Strict aborts a whole summary on the first position failure
	// instead of degrading that position. Off by default; the CLI and
	// dashboard want a summary with loudly flagged holes, not no summary.
	Strict bool
}

// New creates an analyzer around the shared pricing model instance.
func New(model *pricing.Model, rates treasury.RateSource, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		model: model,
		rates: rates,
		log:   log.With().Str("component", "analysis").Logger(),
	}
}

// optionResolution is everything resolveOption derives for one option
// position. Both Analyze and Summarize consume exactly this.
type optionResolution struct {
	underlying   float64
	delta        float64
	impliedVol   *float64 // nil on the expiry-day boundary
	beta         float64
	exposure     float64
	betaAdjusted float64
}

// resolveOption is the single implementation of the per-option pipeline:
// underlying price, implied volatility from the option's own market
// price, delta at that volatility, delta-adjusted exposure, beta
// adjustment.
func (a *Analyzer) resolveOption(ctx context.Context, pos models.OptionPosition,
	md providers.MarketDataProvider, pf *models.Portfolio, riskFree float64,
	asOf time.Time) (optionResolution, error) {

	var res optionResolution

	underlying, err := a.resolveUnderlying(ctx, pos, md, pf)
	if err != nil {
		return res, err
	}
	res.underlying = underlying

	days := marketcal.DaysToExpiry(asOf, pos.Expiry)
	switch {
	case days < 0:
		return res, &pricing.ExpiredOptionError{Expiry: pos.Expiry, AsOf: asOf}
	case days == 0:
		// Expiry-day boundary: intrinsic-only valuation, no implied
		// volatility. PriceAndDelta takes the boundary path before it
		// ever looks at the volatility argument.
		_, delta, err := a.model.PriceAndDelta(pos.Type, pos.Strike, pos.Expiry, underlying, 0, riskFree, asOf)
		if err != nil {
			return res, err
		}
		res.delta = delta
	default:
		iv, err := a.model.ImpliedVolatility(pos.Type, pos.Strike, pos.Expiry, underlying, pos.Price, riskFree, asOf)
		if err != nil {
			return res, err
		}
		_, delta, err := a.model.PriceAndDelta(pos.Type, pos.Strike, pos.Expiry, underlying, iv, riskFree, asOf)
		if err != nil {
			return res, err
		}
		res.impliedVol = &iv
		res.delta = delta
	}

	beta, err := md.GetBeta(ctx, pos.Ticker)
	if err != nil {
		return res, err
	}
	res.beta = beta
	res.exposure = exposure.Option(pos.Quantity, res.delta, underlying)
	res.betaAdjusted = exposure.BetaAdjusted(res.exposure, beta)
	return res, nil
}

// resolveUnderlying picks the underlying price for an option: a
// co-located stock position for the same ticker wins, then the price the
// loader attached to the option row, then a provider fetch.
func (a *Analyzer) resolveUnderlying(ctx context.Context, pos models.OptionPosition,
	md providers.MarketDataProvider, pf *models.Portfolio) (float64, error) {

	if pf != nil {
		if sp, ok := pf.StockByTicker(pos.Ticker); ok && sp.Price > 0 {
			if pos.Underlying > 0 && relativeGap(pos.Underlying, sp.Price) > 0.005 {
				a.log.Warn().
					Str("ticker", pos.Ticker).
					Float64("option_row_price", pos.Underlying).
					Float64("stock_row_price", sp.Price).
					Msg("option row and stock row disagree on underlying price, using stock row")
			}
			return sp.Price, nil
		}
	}
	if pos.Underlying > 0 {
		return pos.Underlying, nil
	}
	return md.GetPrice(ctx, pos.Ticker)
}

func relativeGap(a, b float64) float64 {
	gap := (a - b) / b
	if gap < 0 {
		return -gap
	}
	return gap
}

// Analyze produces the full analysis record for a single position. The
// portfolio is optional; when present it is used to prefer co-located
// stock quotes for option underlyings.
func (a *Analyzer) Analyze(ctx context.Context, pos models.Position,
	md providers.MarketDataProvider, pf *models.Portfolio, asOf time.Time) (models.PositionAnalysis, error) {

	out := models.PositionAnalysis{
		Ticker:      pos.PositionTicker(),
		Kind:        string(pos.Kind()),
		MarketValue: pos.MarketValue(),
	}

	switch p := pos.(type) {
	case models.StockPosition:
		beta, err := md.GetBeta(ctx, p.Ticker)
		if err != nil {
			return out, err
		}
		out.Beta = beta
		out.MarketExposure = exposure.Stock(p.Quantity, p.Price)
		out.BetaAdjustedExposure = exposure.BetaAdjusted(out.MarketExposure, beta)

	case models.OptionPosition:
		riskFree, err := a.rates.Rate(ctx)
		if err != nil {
			return out, fmt.Errorf("risk-free rate: %w", err)
		}
		res, err := a.resolveOption(ctx, p, md, pf, riskFree, asOf)
		if err != nil {
			return out, err
		}
		delta := res.delta
		out.Delta = &delta
		out.ImpliedVolatility = res.impliedVol
		out.UnderlyingPrice = res.underlying
		out.Beta = res.beta
		out.MarketExposure = res.exposure
		out.BetaAdjustedExposure = res.betaAdjusted

	case models.CashPosition:
		// Cash never touches the provider: beta and exposure are zero by
		// definition.

	case models.UnknownPosition:
		// Value only, no exposure.

	default:
		return out, fmt.Errorf("unhandled position kind %q", pos.Kind())
	}

	return out, nil
}
