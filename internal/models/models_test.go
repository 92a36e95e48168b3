package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionMarketValueAppliesContractMultiplier(t *testing.T) {
	pos := OptionPosition{Ticker: "AAPL", Quantity: -2, Price: 5.25}
	assert.InDelta(t, -1050.0, pos.MarketValue(), 1e-9)
}

func TestOptionExpiredIsDateBased(t *testing.T) {
	expiry := time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)
	pos := OptionPosition{Expiry: expiry}

	// Expiry day itself, even late in the session, is not expired.
	assert.False(t, pos.Expired(time.Date(2026, 6, 19, 20, 0, 0, 0, time.UTC)))
	assert.False(t, pos.Expired(time.Date(2026, 6, 18, 0, 0, 0, 0, time.UTC)))
	assert.True(t, pos.Expired(time.Date(2026, 6, 20, 0, 30, 0, 0, time.UTC)))
}

func TestStockByTicker(t *testing.T) {
	pf := &Portfolio{Positions: []Position{
		OptionPosition{Ticker: "AAPL"},
		StockPosition{Ticker: "AAPL", Price: 150},
		StockPosition{Ticker: "MSFT", Price: 400},
	}}

	sp, ok := pf.StockByTicker("AAPL")
	require.True(t, ok)
	assert.Equal(t, 150.0, sp.Price)

	_, ok = pf.StockByTicker("TSLA")
	assert.False(t, ok)
}
