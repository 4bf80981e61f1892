// Package pricing computes deterministic monetary quotes for data requests
// using a multiplicative model: base price scaled by recent demand, privacy
// sensitivity, and requested volume.
package pricing

import (
	"errors"
	"math"
)

const (
	// demandStep is the per-request increment of the demand multiplier;
	// demandCap bounds it.
	demandStep = 0.1
	demandCap  = 2.0

	// Privacy surcharges for higher-detail disclosure
	bodySurcharge     = 0.5
	personalSurcharge = 0.3

	// volumeFreeLimit is the request size below which volume pricing does
	// not apply; volumeStep is the surcharge per additional block of ten.
	volumeFreeLimit = 10
	volumeStep      = 0.2
	volumeCap       = 2.0

	// precision is the fixed decimal precision of every quoted price
	precision = 3
)

// ErrBasePriceUnset is returned when the configured base price is zero or
// negative. Pricing must never silently quote zero.
var ErrBasePriceUnset = errors.New("base price unset")

// Request carries the pricing-relevant portion of a negotiation request
type Request struct {
	RequestedEmails     int
	IncludeBodies       bool
	IncludePersonalInfo bool
}

// Quote computes the price for a request. The multiplication order is fixed
// for reproducibility: base, then demand, then privacy, then volume, rounded
// to three decimal places. recentCount is the number of same-category
// requests in the trailing one-hour window.
func Quote(req Request, basePrice float64, recentCount int) (float64, error) {
	if basePrice <= 0 {
		return 0, ErrBasePriceUnset
	}

	price := basePrice
	price *= DemandMultiplier(recentCount)
	price *= PrivacyMultiplier(req.IncludeBodies, req.IncludePersonalInfo)
	price *= VolumeMultiplier(req.RequestedEmails)

	return Round(price), nil
}

// DemandMultiplier scales with recent same-category request volume,
// capped at demandCap.
func DemandMultiplier(recentCount int) float64 {
	if recentCount < 0 {
		recentCount = 0
	}
	return math.Min(1+float64(recentCount)*demandStep, demandCap)
}

// PrivacyMultiplier adds surcharges for body and personal-info access
func PrivacyMultiplier(includeBodies, includePersonalInfo bool) float64 {
	m := 1.0
	if includeBodies {
		m += bodySurcharge
	}
	if includePersonalInfo {
		m += personalSurcharge
	}
	return m
}

// VolumeMultiplier is 1.0 up to volumeFreeLimit records and grows by
// volumeStep per additional block of ten, capped at volumeCap.
func VolumeMultiplier(requestedEmails int) float64 {
	if requestedEmails <= volumeFreeLimit {
		return 1.0
	}
	extra := float64(requestedEmails-volumeFreeLimit) / float64(volumeFreeLimit)
	return math.Min(1+extra*volumeStep, volumeCap)
}

// Round rounds a price to the fixed decimal precision. Prices are always
// non-negative.
func Round(price float64) float64 {
	if price < 0 {
		return 0
	}
	shift := math.Pow(10, precision)
	return math.Round(price*shift) / shift
}
