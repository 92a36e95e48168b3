package alpaca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestAlignedReturnsPairsByDate(t *testing.T) {
	ticker := []dailyClose{
		{date: "2026-08-24", close: 100},
		{date: "2026-08-25", close: 102},
		{date: "2026-08-26", close: 101}, // market closed for us below
		{date: "2026-08-27", close: 103},
	}
	market := []dailyClose{
		{date: "2026-08-24", close: 500},
		{date: "2026-08-25", close: 505},
		{date: "2026-08-27", close: 510},
	}

	ra, rb := alignedReturns(ticker, market)
	require.Len(t, ra, 2)
	require.Len(t, rb, 2)

	// 24->25 and 25->27: the unmatched 26th drops out of both series.
	assert.InDelta(t, 0.02, ra[0], 1e-9)
	assert.InDelta(t, 0.01, rb[0], 1e-9)
	assert.InDelta(t, 103.0/102.0-1, ra[1], 1e-9)
	assert.InDelta(t, 510.0/505.0-1, rb[1], 1e-9)
}

func TestAlignedReturnsNoOverlap(t *testing.T) {
	ra, rb := alignedReturns(
		[]dailyClose{{date: "2026-08-24", close: 100}},
		[]dailyClose{{date: "2026-08-25", close: 500}},
	)
	assert.Empty(t, ra)
	assert.Empty(t, rb)
}

func TestBetaRegressionRecoversKnownBeta(t *testing.T) {
	// A series constructed as exactly 1.5x the market's returns must
	// regress to beta 1.5.
	rMarket := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, -0.005}
	rTicker := make([]float64, len(rMarket))
	for i, r := range rMarket {
		rTicker[i] = 1.5 * r
	}

	beta := stat.Covariance(rTicker, rMarket, nil) / stat.Variance(rMarket, nil)
	assert.InDelta(t, 1.5, beta, 1e-9)
}
