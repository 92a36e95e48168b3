// Package providers defines the market data capability the analytics
// depend on, plus the concrete implementations shipped with the tool. The
// interface is deliberately narrow: a ticker in, a price or beta out, an
// error whenever the data is not available. Providers never mask absence
// with a zero or a default — what to do about a missing quote is the
// aggregator's decision, not theirs.
package providers

import (
	"context"
	"fmt"
)

// MarketDataProvider supplies current prices and betas by ticker.
type MarketDataProvider interface {
	// GetPrice returns the latest price for a ticker. It must return a
	// MarketDataUnavailableError (not 0, not NaN) when no quote exists.
	GetPrice(ctx context.Context, ticker string) (float64, error)

	// GetBeta returns the ticker's beta versus the broad market index,
	// with the same failure contract as GetPrice.
	GetBeta(ctx context.Context, ticker string) (float64, error)

	// Name identifies the provider in logs.
	Name() string
}

// MarketDataUnavailableError reports that a provider could not supply a
// price or beta required by the analytics.
type MarketDataUnavailableError struct {
	Ticker string
	Field  string // "price" or "beta"
	Cause  error
}

func (e *MarketDataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("market data unavailable: %s for %s: %v", e.Field, e.Ticker, e.Cause)
	}
	return fmt.Sprintf("market data unavailable: %s for %s", e.Field, e.Ticker)
}

func (e *MarketDataUnavailableError) Unwrap() error { return e.Cause }
