package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jwaldner/folio/internal/exposure"
	"github.com/jwaldner/folio/internal/models"
	"github.com/jwaldner/folio/internal/providers"
)

// AggregationFailureError reports a portfolio-level invariant violation —
// a non-finite total, never a per-position data problem (those degrade).
type AggregationFailureError struct {
	Reason string
}

func (e *AggregationFailureError) Error() string {
	return fmt.Sprintf("portfolio aggregation failed: %s", e.Reason)
}

// Summarize folds every position in the portfolio into a
// PortfolioSummary using a market data snapshot.
//
// Failure semantics: a position whose market data cannot be resolved is
// logged with its ticker and cause, keeps its raw market value in the
// value totals, is excluded from every exposure total, and is recorded in
// Degraded. With Strict set, the first such failure aborts the summary
// instead. Numeric fields are never silently defaulted.
func (a *Analyzer) Summarize(ctx context.Context, pf *models.Portfolio,
	md providers.MarketDataProvider, asOf time.Time) (models.PortfolioSummary, error) {

	summary := models.PortfolioSummary{
		PendingActivityValue: pf.PendingActivityValue,
	}

	// One rate per snapshot. If the portfolio holds no options the rate
	// source is never consulted.
	var riskFree float64
	var riskFreeErr error
	rateFetched := false

	degrade := func(pos models.Position, err error) error {
		if a.Strict {
			return fmt.Errorf("position %s: %w", pos.PositionTicker(), err)
		}
		a.log.Error().Err(err).
			Str("ticker", pos.PositionTicker()).
			Str("kind", string(pos.Kind())).
			Msg("position excluded from exposure totals")
		summary.Degraded = append(summary.Degraded, models.DegradedPosition{
			Ticker: pos.PositionTicker(),
			Kind:   string(pos.Kind()),
			Reason: err.Error(),
		})
		return nil
	}

	var stockValueBasis float64

	for _, pos := range pf.Positions {
		switch p := pos.(type) {
		case models.StockPosition:
			value := p.MarketValue()
			summary.StockValue += value

			beta, err := md.GetBeta(ctx, p.Ticker)
			if err != nil {
				if aerr := degrade(pos, err); aerr != nil {
					return models.PortfolioSummary{}, aerr
				}
				continue
			}

			exp := exposure.Stock(p.Quantity, p.Price)
			if exposure.Classify(exp) == exposure.Long {
				summary.LongStockExposure += exp
			} else {
				summary.ShortStockExposure += exp
			}
			summary.NetMarketExposure += exp
			summary.BetaAdjustedExposure += exposure.BetaAdjusted(exp, beta)
			stockValueBasis += value

		case models.OptionPosition:
			summary.OptionValue += p.MarketValue()

			if !rateFetched {
				riskFree, riskFreeErr = a.rates.Rate(ctx)
				rateFetched = true
			}
			if riskFreeErr != nil {
				if aerr := degrade(pos, fmt.Errorf("risk-free rate: %w", riskFreeErr)); aerr != nil {
					return models.PortfolioSummary{}, aerr
				}
				continue
			}

			res, err := a.resolveOption(ctx, p, md, pf, riskFree, asOf)
			if err != nil {
				if aerr := degrade(pos, err); aerr != nil {
					return models.PortfolioSummary{}, aerr
				}
				continue
			}

			if exposure.Classify(res.exposure) == exposure.Long {
				summary.LongOptionExposure += res.exposure
			} else {
				summary.ShortOptionExposure += res.exposure
			}
			summary.NetMarketExposure += res.exposure
			summary.BetaAdjustedExposure += res.betaAdjusted

		case models.CashPosition:
			summary.CashValue += p.MarketValue()

		case models.UnknownPosition:
			summary.UnknownValue += p.MarketValue()
			a.log.Warn().Str("ticker", p.Ticker).Str("description", p.Description).
				Msg("unclassified position counted in value only")

		default:
			if aerr := degrade(pos, fmt.Errorf("unhandled position kind %q", pos.Kind())); aerr != nil {
				return models.PortfolioSummary{}, aerr
			}
		}
	}

	summary.TotalValue = summary.StockValue + summary.OptionValue +
		summary.CashValue + summary.UnknownValue + summary.PendingActivityValue

	// Explicit zero guard: an empty or net-zero portfolio has zero
	// exposure percentage, not NaN.
	if summary.TotalValue != 0 {
		summary.NetExposurePct = summary.NetMarketExposure / summary.TotalValue
	}

	// Portfolio beta is the beta-adjusted exposure over the stock value
	// basis (the value-weighted average of stock betas when the
	// portfolio is all stock). No basis, no beta — nil, never 1.0.
	if stockValueBasis != 0 {
		beta := summary.BetaAdjustedExposure / stockValueBasis
		summary.PortfolioBeta = &beta
	}

	if err := checkFinite(&summary); err != nil {
		return models.PortfolioSummary{}, err
	}
	return summary, nil
}

// checkFinite guards the portfolio-level invariant that every summary
// total is a finite number.
func checkFinite(s *models.PortfolioSummary) error {
	fields := map[string]float64{
		"total_value":            s.TotalValue,
		"net_market_exposure":    s.NetMarketExposure,
		"net_exposure_pct":       s.NetExposurePct,
		"beta_adjusted_exposure": s.BetaAdjustedExposure,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &AggregationFailureError{Reason: fmt.Sprintf("%s is not finite", name)}
		}
	}
	return nil
}
