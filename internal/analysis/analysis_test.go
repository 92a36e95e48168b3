package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwaldner/folio/internal/models"
	"github.com/jwaldner/folio/internal/pricing"
	"github.com/jwaldner/folio/internal/providers"
	"github.com/jwaldner/folio/internal/treasury"
)

var asOf = time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)

// failingRates stands in for a rate source that must never be needed, or
// whose outage the summary must survive.
type failingRates struct{}

func (failingRates) Rate(context.Context) (float64, error) {
	return 0, errors.New("rate service down")
}

// countingRates counts fetches to pin the one-rate-per-snapshot behavior.
type countingRates struct {
	calls int
}

func (c *countingRates) Rate(context.Context) (float64, error) {
	c.calls++
	return 0.04, nil
}

func newAnalyzer(rates treasury.RateSource) (*Analyzer, *pricing.Model) {
	model := pricing.NewModel(0, zerolog.Nop())
	return New(model, rates, zerolog.Nop()), model
}

func TestSummarizeSingleStock(t *testing.T) {
	// No options in the portfolio, so the rate source must never be hit.
	a, _ := newAnalyzer(failingRates{})
	pf := &models.Portfolio{Positions: []models.Position{
		models.StockPosition{Ticker: "AAPL", Quantity: 100, Price: 150},
	}}
	md := providers.NewStaticProvider(nil, map[string]float64{"AAPL": 1.2})

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	assert.Equal(t, 15000.0, summary.TotalValue)
	assert.Equal(t, 15000.0, summary.StockValue)
	assert.Equal(t, 15000.0, summary.LongStockExposure)
	assert.Equal(t, 0.0, summary.ShortStockExposure)
	assert.Equal(t, 15000.0, summary.NetMarketExposure)
	assert.InDelta(t, 1.0, summary.NetExposurePct, 1e-9)
	assert.InDelta(t, 18000.0, summary.BetaAdjustedExposure, 1e-9)
	require.NotNil(t, summary.PortfolioBeta)
	assert.InDelta(t, 1.2, *summary.PortfolioBeta, 1e-9)
	assert.Empty(t, summary.Degraded)
}

func TestAnalyzeShortCallRecoversVolatilityFromPremium(t *testing.T) {
	a, model := newAnalyzer(treasury.FixedRate(0.04))
	expiry := asOf.AddDate(0, 0, 45)

	premium, wantDelta, err := model.PriceAndDelta(models.Call, 150, expiry, 155, 0.30, 0.04, asOf)
	require.NoError(t, err)

	pos := models.OptionPosition{
		Ticker: "AAPL", Quantity: -2, Strike: 150, Expiry: expiry,
		Type: models.Call, Price: premium,
	}
	md := providers.NewStaticProvider(
		map[string]float64{"AAPL": 155},
		map[string]float64{"AAPL": 1.1},
	)

	res, err := a.Analyze(context.Background(), pos, md, nil, asOf)
	require.NoError(t, err)

	require.NotNil(t, res.ImpliedVolatility)
	assert.InDelta(t, 0.30, *res.ImpliedVolatility, 1e-3)
	require.NotNil(t, res.Delta)
	assert.InDelta(t, wantDelta, *res.Delta, 1e-6)
	assert.Equal(t, 155.0, res.UnderlyingPrice)

	wantExposure := -2 * wantDelta * 155 * models.ContractMultiplier
	assert.InDelta(t, wantExposure, res.MarketExposure, 1e-6)
	assert.Less(t, res.MarketExposure, 0.0)
	assert.InDelta(t, wantExposure*1.1, res.BetaAdjustedExposure, 1e-6)
	assert.InDelta(t, -2*premium*models.ContractMultiplier, res.MarketValue, 1e-9)
}

func TestSummarizeAgreesWithAnalyzeOnOptions(t *testing.T) {
	a, model := newAnalyzer(treasury.FixedRate(0.04))
	expiry := asOf.AddDate(0, 0, 45)

	premium, _, err := model.PriceAndDelta(models.Call, 150, expiry, 155, 0.30, 0.04, asOf)
	require.NoError(t, err)

	pos := models.OptionPosition{
		Ticker: "AAPL", Quantity: -2, Strike: 150, Expiry: expiry,
		Type: models.Call, Price: premium,
	}
	pf := &models.Portfolio{Positions: []models.Position{pos}}
	md := providers.NewStaticProvider(
		map[string]float64{"AAPL": 155},
		map[string]float64{"AAPL": 1.1},
	)
	ctx := context.Background()

	res, err := a.Analyze(ctx, pos, md, pf, asOf)
	require.NoError(t, err)
	summary, err := a.Summarize(ctx, pf, md, asOf)
	require.NoError(t, err)

	// One resolution path: the summary's bucket carries exactly the
	// per-position number.
	assert.InDelta(t, res.MarketExposure, summary.ShortOptionExposure, 1e-9)
	assert.Equal(t, 0.0, summary.LongOptionExposure)
	assert.InDelta(t, res.BetaAdjustedExposure, summary.BetaAdjustedExposure, 1e-9)
	assert.InDelta(t, res.MarketValue, summary.OptionValue, 1e-9)
}

func TestSummarizeShortPutIsLongExposure(t *testing.T) {
	a, model := newAnalyzer(treasury.FixedRate(0.04))
	expiry := asOf.AddDate(0, 0, 60)

	premium, _, err := model.PriceAndDelta(models.Put, 150, expiry, 140, 0.35, 0.04, asOf)
	require.NoError(t, err)

	pf := &models.Portfolio{Positions: []models.Position{
		models.OptionPosition{
			Ticker: "XYZ", Quantity: -3, Strike: 150, Expiry: expiry,
			Type: models.Put, Price: premium, Underlying: 140,
		},
	}}
	md := providers.NewStaticProvider(nil, map[string]float64{"XYZ": 0.9})

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	assert.Greater(t, summary.LongOptionExposure, 0.0)
	assert.Equal(t, 0.0, summary.ShortOptionExposure)
	assert.Empty(t, summary.Degraded)
}

func TestSummarizeFetchesRateOncePerSnapshot(t *testing.T) {
	rates := &countingRates{}
	a, model := newAnalyzer(rates)
	expiry := asOf.AddDate(0, 0, 45)

	premium, _, err := model.PriceAndDelta(models.Call, 150, expiry, 155, 0.30, 0.04, asOf)
	require.NoError(t, err)

	opt := models.OptionPosition{
		Ticker: "AAPL", Quantity: 1, Strike: 150, Expiry: expiry,
		Type: models.Call, Price: premium, Underlying: 155,
	}
	opt2 := opt
	opt2.Quantity = 2
	pf := &models.Portfolio{Positions: []models.Position{opt, opt2}}
	md := providers.NewStaticProvider(nil, map[string]float64{"AAPL": 1.1})

	_, err = a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, rates.calls)
}

func TestSummarizeDegradesPositionWithoutMarketData(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	pf := &models.Portfolio{Positions: []models.Position{
		models.StockPosition{Ticker: "MSFT", Quantity: 10, Price: 400},
		models.StockPosition{Ticker: "ZZZZ", Quantity: 5, Price: 20},
	}}
	md := providers.NewStaticProvider(nil, map[string]float64{"MSFT": 1.0})

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	// Value keeps both rows; exposure only the resolvable one.
	assert.Equal(t, 4100.0, summary.StockValue)
	assert.Equal(t, 4000.0, summary.NetMarketExposure)
	assert.InDelta(t, 4000.0, summary.BetaAdjustedExposure, 1e-9)

	require.Len(t, summary.Degraded, 1)
	assert.Equal(t, "ZZZZ", summary.Degraded[0].Ticker)
	assert.Equal(t, "stock", summary.Degraded[0].Kind)
	assert.NotEmpty(t, summary.Degraded[0].Reason)

	require.NotNil(t, summary.PortfolioBeta)
	assert.InDelta(t, 1.0, *summary.PortfolioBeta, 1e-9)
}

func TestSummarizeStrictAbortsOnFirstFailure(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	a.Strict = true
	pf := &models.Portfolio{Positions: []models.Position{
		models.StockPosition{Ticker: "ZZZZ", Quantity: 5, Price: 20},
	}}
	md := providers.NewStaticProvider(nil, nil)

	_, err := a.Summarize(context.Background(), pf, md, asOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZZZZ")
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	summary, err := a.Summarize(context.Background(), &models.Portfolio{},
		providers.NewStaticProvider(nil, nil), asOf)
	require.NoError(t, err)

	assert.Equal(t, 0.0, summary.TotalValue)
	assert.Equal(t, 0.0, summary.NetExposurePct)
	assert.Nil(t, summary.PortfolioBeta)
	assert.Empty(t, summary.Degraded)
}

func TestSummarizeCashNeverHitsProvider(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	pf := &models.Portfolio{Positions: []models.Position{
		models.CashPosition{Ticker: "SPAXX", Quantity: 5000, Price: 1},
	}}
	// Empty provider: any lookup would degrade the position.
	md := providers.NewStaticProvider(nil, nil)

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, summary.CashValue)
	assert.Equal(t, 5000.0, summary.TotalValue)
	assert.Equal(t, 0.0, summary.NetMarketExposure)
	assert.Empty(t, summary.Degraded)
	assert.Nil(t, summary.PortfolioBeta)
}

func TestSummarizeCountsUnknownAndPendingActivityInValueOnly(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	pf := &models.Portfolio{
		Positions: []models.Position{
			models.UnknownPosition{Ticker: "912828XG55", Quantity: 10, Price: 5},
		},
		PendingActivityValue: 250,
	}
	md := providers.NewStaticProvider(nil, nil)

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	assert.Equal(t, 50.0, summary.UnknownValue)
	assert.Equal(t, 250.0, summary.PendingActivityValue)
	assert.Equal(t, 300.0, summary.TotalValue)
	assert.Equal(t, 0.0, summary.NetMarketExposure)
}

func TestSummarizeDegradesExpiredOption(t *testing.T) {
	a, _ := newAnalyzer(treasury.FixedRate(0.04))
	pf := &models.Portfolio{Positions: []models.Position{
		models.OptionPosition{
			Ticker: "AAPL", Quantity: 2, Strike: 150, Expiry: asOf.AddDate(0, 0, -7),
			Type: models.Call, Price: 3.5, Underlying: 155,
		},
	}}
	md := providers.NewStaticProvider(nil, map[string]float64{"AAPL": 1.1})

	summary, err := a.Summarize(context.Background(), pf, md, asOf)
	require.NoError(t, err)

	// The stale row's value still counts; its exposure does not.
	assert.Equal(t, 700.0, summary.OptionValue)
	assert.Equal(t, 0.0, summary.NetMarketExposure)
	require.Len(t, summary.Degraded, 1)
	assert.Equal(t, "AAPL", summary.Degraded[0].Ticker)
}

func TestAnalyzeExpiryDayOptionUsesBoundaryDelta(t *testing.T) {
	a, _ := newAnalyzer(treasury.FixedRate(0.04))
	expiry := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	pos := models.OptionPosition{
		Ticker: "AAPL", Quantity: 1, Strike: 150, Expiry: expiry,
		Type: models.Call, Price: 10, Underlying: 160,
	}
	md := providers.NewStaticProvider(nil, map[string]float64{"AAPL": 1.0})

	res, err := a.Analyze(context.Background(), pos, md, nil, asOf)
	require.NoError(t, err)

	require.NotNil(t, res.Delta)
	assert.Equal(t, 1.0, *res.Delta)
	assert.Nil(t, res.ImpliedVolatility)
	assert.InDelta(t, 16000.0, res.MarketExposure, 1e-9)
}

func TestAnalyzePrefersColocatedStockQuote(t *testing.T) {
	a, _ := newAnalyzer(treasury.FixedRate(0.04))
	expiry := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	opt := models.OptionPosition{
		Ticker: "AAPL", Quantity: 1, Strike: 100, Expiry: expiry,
		Type: models.Call, Price: 50, Underlying: 100, // stale option row quote
	}
	pf := &models.Portfolio{Positions: []models.Position{
		models.StockPosition{Ticker: "AAPL", Quantity: 10, Price: 150},
		opt,
	}}
	md := providers.NewStaticProvider(nil, map[string]float64{"AAPL": 1.0})

	res, err := a.Analyze(context.Background(), opt, md, pf, asOf)
	require.NoError(t, err)

	assert.Equal(t, 150.0, res.UnderlyingPrice)
	assert.InDelta(t, 15000.0, res.MarketExposure, 1e-9)
}

func TestAnalyzeStockBetaFailurePropagates(t *testing.T) {
	a, _ := newAnalyzer(failingRates{})
	pos := models.StockPosition{Ticker: "ZZZZ", Quantity: 1, Price: 10}

	_, err := a.Analyze(context.Background(), pos, providers.NewStaticProvider(nil, nil), nil, asOf)
	var unavailable *providers.MarketDataUnavailableError
	assert.True(t, errors.As(err, &unavailable), "got %v", err)
}
