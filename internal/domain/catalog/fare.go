package catalog

import (
	"fmt"

	"github.com/autopool/service-rides/internal/common/domain"
)

// FareCalculator computes the fare for a passenger count under a tier.
type FareCalculator interface {
	// Fare returns the fare for the given tier and passenger count. The
	// count must already be validated against [1, tier.MaxCapacity]; the
	// calculator never clamps.
	Fare(tier PricingTier, passengerCount int) (int64, error)
}

// TieredFareCalculator is the production pricing rule: per-head up to the
// flat-rate threshold, chartered flat rate above it.
type TieredFareCalculator struct{}

// NewTieredFareCalculator creates the default fare calculator.
func NewTieredFareCalculator() *TieredFareCalculator {
	return &TieredFareCalculator{}
}

// Fare computes the fare in rupees.
func (TieredFareCalculator) Fare(tier PricingTier, passengerCount int) (int64, error) {
	if passengerCount < 1 || passengerCount > tier.MaxCapacity {
		return 0, domain.NewValidationError(fmt.Sprintf(
			"passenger count %d out of range [1, %d]", passengerCount, tier.MaxCapacity))
	}
	if passengerCount <= tier.MinPassengersForFlatRate {
		return int64(passengerCount) * tier.PerHeadRate, nil
	}
	return tier.FlatRate, nil
}
