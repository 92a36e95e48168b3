// Package treasury fetches the risk-free rate used by the pricing model
// from the US Treasury fiscal data API (latest Treasury Bill average
// rate). The client keeps the last successfully fetched rate; using it
// when the API is down is an explicit, named choice (RateOrLastKnown), not
// something that happens silently inside an error path.
package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service"

// RateSource is the capability the analytics consume: a risk-free rate as
// a decimal fraction (0.04 = 4%).
type RateSource interface {
	Rate(ctx context.Context) (float64, error)
}

// FixedRate is a RateSource pinned to a constant, for offline or
// deterministic runs. The rate is visible in config, never buried in code.
type FixedRate float64

func (r FixedRate) Rate(_ context.Context) (float64, error) { return float64(r), nil }

// Client fetches Treasury Bill rates over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger

	mu            sync.Mutex
	lastKnownRate float64
	lastFetchTime time.Time
}

// NewClient creates a Treasury rate client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		log:        log.With().Str("component", "treasury").Logger(),
	}
}

type rateResponse struct {
	Data []struct {
		RecordDate            string `json:"record_date"`
		AvgInterestRateAmount string `json:"avg_interest_rate_amt"`
	} `json:"data"`
}

// Rate fetches the most recent Treasury Bill average rate. A successful
// fetch refreshes the last-known cache; a failed fetch is an error, full
// stop — callers wanting the stale value must ask for it by name.
func (c *Client) Rate(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/v2/accounting/od/avg_interest_rates?fields=avg_interest_rate_amt,record_date&filter=security_desc:eq:Treasury%%20Bills&sort=-record_date&page[size]=1", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating treasury request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching treasury rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("treasury API returned status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding treasury response: %w", err)
	}
	if len(payload.Data) == 0 {
		return 0, fmt.Errorf("no treasury rate data returned")
	}

	// Percentage string to decimal fraction ("3.983" -> 0.03983).
	rate, err := strconv.ParseFloat(payload.Data[0].AvgInterestRateAmount, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing treasury rate %q: %w", payload.Data[0].AvgInterestRateAmount, err)
	}
	rate /= 100

	c.mu.Lock()
	c.lastKnownRate = rate
	c.lastFetchTime = time.Now()
	c.mu.Unlock()

	c.log.Debug().Float64("rate", rate).Str("record_date", payload.Data[0].RecordDate).
		Msg("fetched treasury bill rate")
	return rate, nil
}

// RateOrLastKnown tries a fresh fetch and falls back to the last
// successful one. This is the one sanctioned fallback in the rate path;
// it fails if there has never been a successful fetch.
func (c *Client) RateOrLastKnown(ctx context.Context) (float64, error) {
	rate, err := c.Rate(ctx)
	if err == nil {
		return rate, nil
	}

	c.mu.Lock()
	last, fetched := c.lastKnownRate, c.lastFetchTime
	c.mu.Unlock()

	if fetched.IsZero() {
		return 0, fmt.Errorf("treasury rate unavailable and no last known rate: %w", err)
	}
	c.log.Warn().Err(err).Float64("last_known_rate", last).
		Dur("age", time.Since(fetched)).Msg("treasury fetch failed, using last known rate")
	return last, nil
}
