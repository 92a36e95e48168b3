package pricing

import (
	"errors"
	"time"

	"github.com/jwaldner/folio/internal/marketcal"
	"github.com/jwaldner/folio/internal/models"
)

// Volatility search domain and convergence settings for the bisection
// solver. The model price is monotone non-decreasing in volatility, so a
// sign change across the bracket guarantees a root.
const (
	volLowerBound = 0.001
	volUpperBound = 5.0
	volResolution = 1e-7
	maxIterations = 100
)

// ImpliedVolatility solves for the volatility at which the model
// reproduces the observed market price.
//
// It fails — with an UnresolvedVolatilityError, never a fallback value —
// when the market price is non-positive, when the price sits outside the
// range achievable inside the search domain (below intrinsic, or above
// the upper bound's theoretical price), or when the solver cannot
// converge. A strictly expired option propagates ExpiredOptionError;
// implied volatility has no meaning on a dead contract.
func (m *Model) ImpliedVolatility(typ models.OptionType, strike float64, expiry time.Time,
	underlying, marketPrice, riskFree float64, asOf time.Time) (float64, error) {

	if marketPrice <= 0 {
		return 0, &UnresolvedVolatilityError{
			Reason:      "market price must be positive",
			MarketPrice: marketPrice,
		}
	}

	days := marketcal.DaysToExpiry(asOf, expiry)
	if days < 0 {
		return 0, &ExpiredOptionError{Expiry: expiry, AsOf: asOf}
	}
	if days == 0 {
		return 0, &UnresolvedVolatilityError{
			Reason:      "option is at expiry, implied volatility is undefined",
			MarketPrice: marketPrice,
		}
	}

	priceAt := func(vol float64) (float64, error) {
		price, _, err := m.PriceAndDelta(typ, strike, expiry, underlying, vol, riskFree, asOf)
		return price, err
	}

	lo, hi := volLowerBound, volUpperBound
	// The lattice needs vol*sqrt(dt) to dominate the drift per step; lift
	// the lower bracket to the smallest stable volatility when the
	// nominal bound sits below it.
	if floor := m.stableVolFloor(riskFree, marketcal.YearFraction(asOf, expiry)); floor > lo {
		lo = floor
	}
	if lo >= hi {
		return 0, &UnresolvedVolatilityError{
			Reason:      "no stable volatility search domain for these rate and expiry inputs",
			MarketPrice: marketPrice,
		}
	}
	fLo, err := m.bracketPrice(priceAt, lo, marketPrice)
	if err != nil {
		return 0, err
	}
	fHi, err := m.bracketPrice(priceAt, hi, marketPrice)
	if err != nil {
		return 0, err
	}

	if fLo > 0 {
		return 0, &UnresolvedVolatilityError{
			Reason:      "market price is below the minimum model price (under intrinsic value)",
			MarketPrice: marketPrice,
		}
	}
	if fHi < 0 {
		return 0, &UnresolvedVolatilityError{
			Reason:      "market price exceeds the model price at the volatility upper bound",
			MarketPrice: marketPrice,
		}
	}
	if fLo == 0 {
		return lo, nil
	}
	if fHi == 0 {
		return hi, nil
	}

	for i := 0; i < maxIterations && hi-lo > volResolution; i++ {
		mid := (lo + hi) / 2
		fMid, err := m.bracketPrice(priceAt, mid, marketPrice)
		if err != nil {
			return 0, err
		}
		if fMid == 0 {
			return mid, nil
		}
		if fMid < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	if hi-lo > volResolution {
		return 0, &UnresolvedVolatilityError{
			Reason:      "bisection did not converge",
			MarketPrice: marketPrice,
		}
	}
	return (lo + hi) / 2, nil
}

// bracketPrice evaluates price(vol) - market, translating pricing errors
// at a bracket endpoint into solver failures so callers see one taxonomy.
func (m *Model) bracketPrice(priceAt func(float64) (float64, error), vol, market float64) (float64, error) {
	price, err := priceAt(vol)
	if err != nil {
		var invalid *InvalidParametersError
		if errors.As(err, &invalid) {
			return 0, &UnresolvedVolatilityError{
				Reason:      "model unusable inside search domain: " + invalid.Reason,
				MarketPrice: market,
			}
		}
		return 0, err
	}
	return price - market, nil
}
