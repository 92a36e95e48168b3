// Package pricing implements the single option pricing engine used across
// the whole application: an American-exercise, continuous-dividend CRR
// binomial model and a bracketed implied volatility solver built on top of
// it. Every caller — the per-position analyzer, the portfolio aggregator,
// the dashboard — goes through these functions. Do not reimplement the
// formulas at a call site; a second engine is how the numbers drift.
package pricing

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwaldner/folio/internal/marketcal"
	"github.com/jwaldner/folio/internal/models"
)

// defaultSteps is the binomial tree depth. 200 steps prices a one-year
// ATM contract to well under a tenth of a cent against the closed form.
const defaultSteps = 200

// deltaTolerance absorbs floating point noise at the delta range
// boundaries. Anything further outside [0,1] / [-1,0] than this is a real
// numerical failure and is raised, never clamped.
const deltaTolerance = 1e-9

// Model prices American-style US equity options with a continuous dividend
// yield. The zero value is not usable; construct with NewModel.
type Model struct {
	steps         int
	dividendYield float64
	log           zerolog.Logger
}

// NewModel returns a pricing model with the given continuous dividend
// yield. Volatility is never defaulted here — callers must supply it,
// normally from ImpliedVolatility.
func NewModel(dividendYield float64, log zerolog.Logger) *Model {
	return &Model{
		steps:         defaultSteps,
		dividendYield: dividendYield,
		log:           log.With().Str("component", "pricing").Logger(),
	}
}

// PriceAndDelta returns the theoretical price and delta for an option.
//
// Inputs must satisfy strike > 0, underlying > 0, volatility > 0 and
// expiry >= asOf. On expiry day itself the option is valued at intrinsic
// with a boundary delta (call: 1 in the money, 0 out, 0.5 exactly at the
// strike; put mirrored) and a warning is logged. Strictly past expiry is
// an ExpiredOptionError: Greeks on a dead contract mean the caller is
// holding stale data.
func (m *Model) PriceAndDelta(typ models.OptionType, strike float64, expiry time.Time,
	underlying, volatility, riskFree float64, asOf time.Time) (price, delta float64, err error) {

	if typ != models.Call && typ != models.Put {
		return 0, 0, &InvalidParametersError{Reason: "option type must be CALL or PUT"}
	}
	if strike <= 0 {
		return 0, 0, &InvalidParametersError{Reason: "strike must be positive"}
	}
	if underlying <= 0 {
		return 0, 0, &InvalidParametersError{Reason: "underlying price must be positive"}
	}

	days := marketcal.DaysToExpiry(asOf, expiry)
	if days < 0 {
		return 0, 0, &ExpiredOptionError{Expiry: expiry, AsOf: asOf}
	}
	if days == 0 {
		price, delta = expiryBoundary(typ, strike, underlying)
		m.log.Warn().
			Str("option_type", string(typ)).
			Float64("strike", strike).
			Float64("underlying", underlying).
			Msg("option valued at expiry boundary, using intrinsic value")
		return price, delta, nil
	}

	// Volatility only drives the lattice; the expiry boundary above is
	// intrinsic-only and does not require it.
	if volatility <= 0 {
		return 0, 0, &InvalidParametersError{Reason: "volatility must be positive"}
	}

	t := marketcal.YearFraction(asOf, expiry)
	price, delta, err = m.binomial(typ, strike, underlying, volatility, riskFree, t)
	if err != nil {
		return 0, 0, err
	}
	return price, delta, m.checkDeltaRange(typ, &delta)
}

// binomial runs Cox-Ross-Rubinstein backward induction with early exercise
// at every node. Delta is read off the first time step.
func (m *Model) binomial(typ models.OptionType, strike, underlying, vol, riskFree, t float64) (float64, float64, error) {
	n := m.steps
	dt := t / float64(n)
	u := math.Exp(vol * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp((riskFree - m.dividendYield) * dt)
	p := (growth - d) / (u - d)
	if p <= 0 || p >= 1 {
		// The risk-neutral probability leaves (0,1) when the drift per
		// step overwhelms the volatility per step.
		return 0, 0, &InvalidParametersError{
			Reason: "volatility too small relative to rate/dividend drift for a stable lattice",
		}
	}
	disc := math.Exp(-riskFree * dt)

	// Terminal payoffs.
	values := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		s := underlying * math.Pow(u, float64(2*i-n))
		values[i] = intrinsicValue(typ, strike, s)
	}

	// Roll back, exercising early whenever intrinsic beats continuation.
	for step := n - 1; step >= 1; step-- {
		for i := 0; i <= step; i++ {
			cont := disc * (p*values[i+1] + (1-p)*values[i])
			s := underlying * math.Pow(u, float64(2*i-step))
			if ex := intrinsicValue(typ, strike, s); ex > cont {
				values[i] = ex
			} else {
				values[i] = cont
			}
		}
	}

	// One step from the root the two surviving node values give the hedge
	// ratio; the final rollback gives the price.
	delta := (values[1] - values[0]) / (underlying*u - underlying*d)
	price := disc * (p*values[1] + (1-p)*values[0])
	if ex := intrinsicValue(typ, strike, underlying); ex > price {
		price = ex
	}
	return price, delta, nil
}

// stableVolFloor is the smallest volatility at which the lattice's
// risk-neutral probability stays inside (0,1): vol*sqrt(dt) must exceed
// the absolute drift per step.
func (m *Model) stableVolFloor(riskFree, t float64) float64 {
	dt := t / float64(m.steps)
	drift := riskFree - m.dividendYield
	if drift < 0 {
		drift = -drift
	}
	return drift * math.Sqrt(dt) * 1.001
}

// checkDeltaRange enforces the delta invariants: CALL in [0,1], PUT in
// [-1,0]. Values outside the range beyond floating point tolerance are a
// numerical failure, raised rather than clamped.
func (m *Model) checkDeltaRange(typ models.OptionType, delta *float64) error {
	lo, hi := 0.0, 1.0
	if typ == models.Put {
		lo, hi = -1.0, 0.0
	}
	if *delta < lo-deltaTolerance || *delta > hi+deltaTolerance {
		return &InvalidParametersError{
			Reason: "computed delta outside valid range, numerical failure",
		}
	}
	if *delta < lo {
		*delta = lo
	}
	if *delta > hi {
		*delta = hi
	}
	return nil
}

// expiryBoundary returns the expiry-day value and boundary delta.
func expiryBoundary(typ models.OptionType, strike, underlying float64) (price, delta float64) {
	price = intrinsicValue(typ, strike, underlying)
	if typ == models.Call {
		switch {
		case underlying > strike:
			delta = 1.0
		case underlying < strike:
			delta = 0.0
		default:
			delta = 0.5
		}
		return price, delta
	}
	switch {
	case underlying < strike:
		delta = -1.0
	case underlying > strike:
		delta = 0.0
	default:
		delta = -0.5
	}
	return price, delta
}

func intrinsicValue(typ models.OptionType, strike, underlying float64) float64 {
	if typ == models.Call {
		return math.Max(underlying-strike, 0)
	}
	return math.Max(strike-underlying, 0)
}
