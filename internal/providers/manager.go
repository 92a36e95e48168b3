package providers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// slowFetchThreshold is where a single quote fetch starts getting logged
// as slow. Summarizing a large portfolio makes many sequential calls, so
// one slow vendor endpoint is worth seeing in the logs.
const slowFetchThreshold = 5 * time.Second

// Manager wraps a MarketDataProvider with logging and a per-snapshot
// memo so one portfolio summary never fetches the same ticker twice.
// The memo is never persisted: a new Manager is a new snapshot.
type Manager struct {
	provider MarketDataProvider
	log      zerolog.Logger

	mu     sync.Mutex
	prices map[string]float64
	betas  map[string]float64
}

// NewManager creates a manager around the given provider.
func NewManager(provider MarketDataProvider, log zerolog.Logger) *Manager {
	return &Manager{
		provider: provider,
		log:      log.With().Str("component", "market_data").Str("provider", provider.Name()).Logger(),
		prices:   make(map[string]float64),
		betas:    make(map[string]float64),
	}
}

// Name returns the wrapped provider's name.
func (m *Manager) Name() string { return m.provider.Name() }

// GetPrice memoizes provider price lookups for the life of the manager.
func (m *Manager) GetPrice(ctx context.Context, ticker string) (float64, error) {
	m.mu.Lock()
	if price, ok := m.prices[ticker]; ok {
		m.mu.Unlock()
		return price, nil
	}
	m.mu.Unlock()

	start := time.Now()
	price, err := m.provider.GetPrice(ctx, ticker)
	if err != nil {
		m.log.Error().Err(err).Str("ticker", ticker).Msg("price fetch failed")
		return 0, err
	}
	if elapsed := time.Since(start); elapsed > slowFetchThreshold {
		m.log.Warn().Str("ticker", ticker).Dur("elapsed", elapsed).Msg("slow price fetch")
	}

	m.mu.Lock()
	m.prices[ticker] = price
	m.mu.Unlock()
	return price, nil
}

// GetBeta memoizes provider beta lookups for the life of the manager.
func (m *Manager) GetBeta(ctx context.Context, ticker string) (float64, error) {
	m.mu.Lock()
	if beta, ok := m.betas[ticker]; ok {
		m.mu.Unlock()
		return beta, nil
	}
	m.mu.Unlock()

	start := time.Now()
	beta, err := m.provider.GetBeta(ctx, ticker)
	if err != nil {
		m.log.Error().Err(err).Str("ticker", ticker).Msg("beta fetch failed")
		return 0, err
	}
	if elapsed := time.Since(start); elapsed > slowFetchThreshold {
		m.log.Warn().Str("ticker", ticker).Dur("elapsed", elapsed).Msg("slow beta fetch")
	}

	m.mu.Lock()
	m.betas[ticker] = beta
	m.mu.Unlock()
	return beta, nil
}
