package providers

import "context"

// StaticProvider serves prices and betas from fixed maps. It backs tests
// and offline runs, and is the injection point that replaced the old
// global provider singleton — anything needing deterministic market data
// constructs one of these and passes it down.
type StaticProvider struct {
	Prices map[string]float64
	Betas  map[string]float64
}

// NewStaticProvider creates a provider from fixed price and beta maps.
// Either map may be nil.
func NewStaticProvider(prices, betas map[string]float64) *StaticProvider {
	return &StaticProvider{Prices: prices, Betas: betas}
}

func (s *StaticProvider) Name() string { return "static" }

// GetPrice returns the fixed price for a ticker, or a
// MarketDataUnavailableError when the fixture has none.
func (s *StaticProvider) GetPrice(_ context.Context, ticker string) (float64, error) {
	if price, ok := s.Prices[ticker]; ok {
		return price, nil
	}
	return 0, &MarketDataUnavailableError{Ticker: ticker, Field: "price"}
}

// GetBeta returns the fixed beta for a ticker, or a
// MarketDataUnavailableError when the fixture has none.
func (s *StaticProvider) GetBeta(_ context.Context, ticker string) (float64, error) {
	if beta, ok := s.Betas[ticker]; ok {
		return beta, nil
	}
	return 0, &MarketDataUnavailableError{Ticker: ticker, Field: "beta"}
}
