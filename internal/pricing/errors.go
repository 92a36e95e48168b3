package pricing

import (
	"fmt"
	"time"
)

// InvalidParametersError reports malformed inputs to the pricing model:
// non-positive strike, underlying or volatility, an unknown option type, or
// a numerically unusable parameter combination.
type InvalidParametersError struct {
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid option parameters: %s", e.Reason)
}

// ExpiredOptionError reports an option strictly past expiry. Expiry day
// itself is a boundary case handled by intrinsic valuation, not an error;
// negative days to expiry means stale or invalid upstream data.
type ExpiredOptionError struct {
	Expiry time.Time
	AsOf   time.Time
}

func (e *ExpiredOptionError) Error() string {
	return fmt.Sprintf("option expired %s (as of %s)",
		e.Expiry.Format("2006-01-02"), e.AsOf.Format("2006-01-02"))
}

// UnresolvedVolatilityError reports that no volatility in the search domain
// reproduces the observed market price. There is deliberately no fallback
// volatility: a previous implementation silently substituted 0.30 on solver
// failure and shipped wrong exposures for months.
type UnresolvedVolatilityError struct {
	Reason      string
	MarketPrice float64
}

func (e *UnresolvedVolatilityError) Error() string {
	return fmt.Sprintf("cannot resolve implied volatility for market price %.4f: %s",
		e.MarketPrice, e.Reason)
}
