package models

import (
	"time"
)

// ContractMultiplier is the number of shares controlled by one US equity
// option contract.
const ContractMultiplier = 100.0

// OptionType identifies a call or put contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// PositionKind tags the concrete variant of a Position. Exactly one kind
// applies to every position and it decides which exposure formula is used.
type PositionKind string

const (
	KindStock   PositionKind = "stock"
	KindOption  PositionKind = "option"
	KindCash    PositionKind = "cash"
	KindUnknown PositionKind = "unknown"
)

// Position is the capability shared by all holdings in a portfolio.
// Implementations are immutable value types; updates produce new values.
type Position interface {
	PositionTicker() string
	PositionQuantity() float64
	MarketValue() float64
	Kind() PositionKind
}

// StockPosition is a long or short equity holding. Quantity is signed:
// negative means short.
type StockPosition struct {
	Ticker    string  `json:"ticker"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	CostBasis float64 `json:"cost_basis,omitempty"`
}

func (p StockPosition) PositionTicker() string    { return p.Ticker }
func (p StockPosition) PositionQuantity() float64 { return p.Quantity }
func (p StockPosition) MarketValue() float64      { return p.Quantity * p.Price }
func (p StockPosition) Kind() PositionKind        { return KindStock }

// OptionPosition is a listed equity option holding. Quantity is signed
// contract count (negative = short). Price is the per-share premium; market
// value applies the standard 100-share contract multiplier.
type OptionPosition struct {
	Ticker     string     `json:"ticker"` // underlying symbol
	Quantity   float64    `json:"quantity"`
	Strike     float64    `json:"strike"`
	Expiry     time.Time  `json:"expiry"`
	Type       OptionType `json:"option_type"`
	Price      float64    `json:"price"`
	Underlying float64    `json:"underlying_price,omitempty"` // 0 = fetch from provider
}

func (p OptionPosition) PositionTicker() string    { return p.Ticker }
func (p OptionPosition) PositionQuantity() float64 { return p.Quantity }
func (p OptionPosition) MarketValue() float64      { return p.Quantity * p.Price * ContractMultiplier }
func (p OptionPosition) Kind() PositionKind        { return KindOption }

// Expired reports whether the contract is strictly past expiry as of the
// given date. Expiry day itself is not expired.
func (p OptionPosition) Expired(asOf time.Time) bool {
	ey, em, ed := p.Expiry.Date()
	ay, am, ad := asOf.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	day := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	return expiry.Before(day)
}

// CashPosition is a cash or cash-equivalent holding. Beta is zero by
// definition and is never fetched from a provider.
type CashPosition struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

func (p CashPosition) PositionTicker() string    { return p.Ticker }
func (p CashPosition) PositionQuantity() float64 { return p.Quantity }
func (p CashPosition) MarketValue() float64      { return p.Quantity * p.Price }
func (p CashPosition) Kind() PositionKind        { return KindCash }

// UnknownPosition is a row that could not be classified. It contributes to
// total value but never to exposure or beta.
type UnknownPosition struct {
	Ticker      string  `json:"ticker"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

func (p UnknownPosition) PositionTicker() string    { return p.Ticker }
func (p UnknownPosition) PositionQuantity() float64 { return p.Quantity }
func (p UnknownPosition) MarketValue() float64      { return p.Quantity * p.Price }
func (p UnknownPosition) Kind() PositionKind        { return KindUnknown }

// Portfolio is an unordered collection of positions plus any uncategorized
// pending cash activity reported by the broker.
type Portfolio struct {
	Positions            []Position `json:"positions"`
	PendingActivityValue float64    `json:"pending_activity_value"`
}

// StockByTicker returns the stock position for a ticker if the portfolio
// holds one. Option analysis prefers a co-located stock quote over a
// provider fetch so the two never disagree.
func (pf *Portfolio) StockByTicker(ticker string) (StockPosition, bool) {
	for _, pos := range pf.Positions {
		if sp, ok := pos.(StockPosition); ok && sp.Ticker == ticker {
			return sp, true
		}
	}
	return StockPosition{}, false
}

// DegradedPosition records a position whose market data could not be
// resolved. Its raw value stays in the totals; its exposure does not.
type DegradedPosition struct {
	Ticker string `json:"ticker"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// PortfolioSummary is the derived, recomputed-on-demand view of a portfolio.
// It is a pure function of (Portfolio, market data snapshot) and is never
// mutated in place.
type PortfolioSummary struct {
	TotalValue           float64 `json:"total_value"`
	StockValue           float64 `json:"stock_value"`
	OptionValue          float64 `json:"option_value"`
	CashValue            float64 `json:"cash_value"`
	UnknownValue         float64 `json:"unknown_value"`
	PendingActivityValue float64 `json:"pending_activity_value"`

	LongStockExposure   float64 `json:"long_stock_exposure"`
	ShortStockExposure  float64 `json:"short_stock_exposure"`
	LongOptionExposure  float64 `json:"long_option_exposure"`
	ShortOptionExposure float64 `json:"short_option_exposure"`

	NetMarketExposure    float64  `json:"net_market_exposure"`
	NetExposurePct       float64  `json:"net_exposure_pct"`
	BetaAdjustedExposure float64  `json:"beta_adjusted_exposure"`
	PortfolioBeta        *float64 `json:"portfolio_beta,omitempty"` // nil when no stock value basis

	Degraded []DegradedPosition `json:"degraded_positions,omitempty"`
}

// PositionAnalysis is the per-position result produced by the analyzer.
// Delta and implied volatility are only present for options.
type PositionAnalysis struct {
	Ticker               string   `json:"ticker"`
	Kind                 string   `json:"kind"`
	MarketValue          float64  `json:"market_value"`
	Delta                *float64 `json:"delta,omitempty"`
	ImpliedVolatility    *float64 `json:"implied_volatility,omitempty"`
	UnderlyingPrice      float64  `json:"underlying_price,omitempty"`
	Beta                 float64  `json:"beta"`
	MarketExposure       float64  `json:"market_exposure"`
	BetaAdjustedExposure float64  `json:"beta_adjusted_exposure"`
}
