// Package alpaca implements the market data provider against the Alpaca
// Markets data API. Prices come from the latest daily bar; betas are
// computed from a year of daily closes regressed against SPY.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/jwaldner/folio/internal/providers"
)

const (
	// Rate limiting for the Alpaca Basic Plan (200 requests per minute).
	basicPlanDelay = 350 * time.Millisecond

	defaultTimeout = 30 * time.Second

	// marketProxy is the index used for beta regressions.
	marketProxy = "SPY"

	// betaLookbackDays of daily bars go into the regression. A year of
	// trading days is the usual convention for published betas.
	betaLookbackDays = 365

	// minReturnSamples below which a beta regression is refused rather
	// than reported from noise.
	minReturnSamples = 60
)

// Provider implements providers.MarketDataProvider against Alpaca.
type Provider struct {
	apiKey     string
	secretKey  string
	dataURL    string
	httpClient *http.Client

	lastRequest time.Time
	rateMutex   sync.Mutex
}

// New creates an Alpaca market data provider.
func New(apiKey, secretKey string) *Provider {
	return &Provider{
		apiKey:    apiKey,
		secretKey: secretKey,
		dataURL:   "https://data.alpaca.markets",
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (p *Provider) Name() string { return "alpaca" }

// rateLimit enforces the Basic plan spacing between requests.
func (p *Provider) rateLimit() {
	p.rateMutex.Lock()
	defer p.rateMutex.Unlock()

	if elapsed := time.Since(p.lastRequest); elapsed < basicPlanDelay {
		time.Sleep(basicPlanDelay - elapsed)
	}
	p.lastRequest = time.Now()
}

func (p *Provider) makeRequest(ctx context.Context, endpoint string) ([]byte, error) {
	p.rateLimit()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.dataURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", p.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", p.secretKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpaca API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type barResponse struct {
	Bars map[string][]struct {
		Close     float64   `json:"c"`
		Timestamp time.Time `json:"t"`
	} `json:"bars"`
}

type latestBarResponse struct {
	Bars map[string]struct {
		Close float64 `json:"c"`
	} `json:"bars"`
}

// GetPrice returns the latest daily close for a ticker.
func (p *Provider) GetPrice(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("/v2/stocks/bars/latest?symbols=%s", url.QueryEscape(ticker))
	body, err := p.makeRequest(ctx, endpoint)
	if err != nil {
		return 0, &providers.MarketDataUnavailableError{Ticker: ticker, Field: "price", Cause: err}
	}

	var resp latestBarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &providers.MarketDataUnavailableError{
			Ticker: ticker, Field: "price",
			Cause: fmt.Errorf("parsing latest bar: %w", err),
		}
	}

	bar, ok := resp.Bars[ticker]
	if !ok || bar.Close <= 0 {
		return 0, &providers.MarketDataUnavailableError{Ticker: ticker, Field: "price"}
	}
	return bar.Close, nil
}

// GetBeta regresses the ticker's daily returns against SPY over the
// lookback window: beta = cov(r_ticker, r_spy) / var(r_spy).
func (p *Provider) GetBeta(ctx context.Context, ticker string) (float64, error) {
	closes, err := p.dailyCloses(ctx, ticker)
	if err != nil {
		return 0, &providers.MarketDataUnavailableError{Ticker: ticker, Field: "beta", Cause: err}
	}
	market, err := p.dailyCloses(ctx, marketProxy)
	if err != nil {
		return 0, &providers.MarketDataUnavailableError{Ticker: ticker, Field: "beta", Cause: err}
	}

	rTicker, rMarket := alignedReturns(closes, market)
	if len(rTicker) < minReturnSamples {
		return 0, &providers.MarketDataUnavailableError{
			Ticker: ticker, Field: "beta",
			Cause: fmt.Errorf("only %d overlapping return samples, need %d", len(rTicker), minReturnSamples),
		}
	}

	variance := stat.Variance(rMarket, nil)
	if variance == 0 {
		return 0, &providers.MarketDataUnavailableError{
			Ticker: ticker, Field: "beta",
			Cause: fmt.Errorf("market return variance is zero"),
		}
	}
	return stat.Covariance(rTicker, rMarket, nil) / variance, nil
}

type dailyClose struct {
	date  string
	close float64
}

func (p *Provider) dailyCloses(ctx context.Context, ticker string) ([]dailyClose, error) {
	start := time.Now().AddDate(0, 0, -betaLookbackDays).Format("2006-01-02")
	endpoint := fmt.Sprintf("/v2/stocks/bars?symbols=%s&timeframe=1Day&start=%s&limit=10000",
		url.QueryEscape(ticker), start)
	body, err := p.makeRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp barResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing bars: %w", err)
	}

	bars := resp.Bars[ticker]
	closes := make([]dailyClose, 0, len(bars))
	for _, bar := range bars {
		if bar.Close > 0 {
			closes = append(closes, dailyClose{
				date:  bar.Timestamp.Format("2006-01-02"),
				close: bar.Close,
			})
		}
	}
	return closes, nil
}

// alignedReturns pairs daily log-free simple returns by date so holidays
// or missing bars on either side drop out of the regression.
func alignedReturns(a, b []dailyClose) (ra, rb []float64) {
	bByDate := make(map[string]float64, len(b))
	for _, c := range b {
		bByDate[c.date] = c.close
	}

	var prevA, prevB float64
	havePrev := false
	for _, c := range a {
		mkt, ok := bByDate[c.date]
		if !ok {
			continue
		}
		if havePrev {
			ra = append(ra, c.close/prevA-1)
			rb = append(rb, mkt/prevB-1)
		}
		prevA, prevB = c.close, mkt
		havePrev = true
	}
	return ra, rb
}
