package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredFareCalculator(t *testing.T) {
	calc := NewTieredFareCalculator()
	tier := PricingTier{
		FlatRate:                 100,
		PerHeadRate:              50,
		MinPassengersForFlatRate: 2,
		MaxCapacity:              3,
	}

	t.Run("per head below threshold", func(t *testing.T) {
		fare, err := calc.Fare(tier, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(50), fare)
	})

	t.Run("per head at threshold", func(t *testing.T) {
		fare, err := calc.Fare(tier, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(100), fare)
	})

	t.Run("flat above threshold", func(t *testing.T) {
		fare, err := calc.Fare(tier, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(100), fare)
	})

	t.Run("rejects zero passengers", func(t *testing.T) {
		_, err := calc.Fare(tier, 0)
		assert.Error(t, err)
	})

	t.Run("rejects count above capacity instead of clamping", func(t *testing.T) {
		_, err := calc.Fare(tier, 4)
		assert.Error(t, err)
	})
}

func TestTieredFareCalculator_ThresholdEqualsCapacity(t *testing.T) {
	calc := NewTieredFareCalculator()
	tier := PricingTier{
		FlatRate:                 200,
		PerHeadRate:              40,
		MinPassengersForFlatRate: 6,
		MaxCapacity:              6,
	}

	// Flat rate never applies when the threshold sits at capacity.
	fare, err := calc.Fare(tier, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(240), fare)
}
