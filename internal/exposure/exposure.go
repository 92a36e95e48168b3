// Package exposure holds the sign-preserving exposure arithmetic shared by
// the position analyzer and the portfolio aggregator. The functions are
// deliberately tiny and pure: every historical long/short mismatch in this
// system came from a call site re-deriving one of these formulas with its
// own sign convention.
//
// Review contract: no call to math.Abs anywhere in this package or in any
// code feeding it. Quantity and delta signs carry all the information;
// sign flips happen only through multiplication (short put: negative
// quantity times negative delta yields positive, long exposure).
package exposure

import "github.com/jwaldner/folio/internal/models"

// Bucket classifies an exposure into the long or short aggregation bucket.
type Bucket int

const (
	Long Bucket = iota
	Short
)

// Stock returns the market exposure of an equity position. A short
// quantity yields a negative exposure.
func Stock(quantity, price float64) float64 {
	return quantity * price
}

// Option returns the delta-adjusted notional exposure of an option
// position. The sign falls out of the inputs: long call positive, short
// call negative, long put negative, short put positive.
func Option(quantity, delta, underlyingPrice float64) float64 {
	return quantity * delta * underlyingPrice * models.ContractMultiplier
}

// BetaAdjusted scales a market exposure by the position's beta. Cash has
// beta zero by definition, so its beta-adjusted exposure is always zero
// without any provider lookup.
func BetaAdjusted(marketExposure, beta float64) float64 {
	return marketExposure * beta
}

// Classify applies the single long/short rule used for every position
// kind: non-negative exposure is long, negative is short. There are no
// type-specific branches; a short put with positive delta-adjusted
// notional belongs in the long bucket.
func Classify(marketExposure float64) Bucket {
	if marketExposure < 0 {
		return Short
	}
	return Long
}
