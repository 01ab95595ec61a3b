package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopool/service-rides/internal/common/domain"
)

func TestNewCatalog(t *testing.T) {
	valid := Destination{
		ID: "airport", Name: "Airport", Lat: 17.24, Lng: 78.43,
		Tiers: map[VehicleClass]PricingTier{
			ClassSmall: {FlatRate: 400, PerHeadRate: 150, MinPassengersForFlatRate: 2, MaxCapacity: 3},
		},
	}

	t.Run("accepts valid destinations", func(t *testing.T) {
		c, err := NewCatalog([]Destination{valid})
		require.NoError(t, err)

		got, err := c.Get("airport")
		require.NoError(t, err)
		assert.Equal(t, "Airport", got.Name)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewCatalog([]Destination{valid, valid})
		assert.Error(t, err)
	})

	t.Run("rejects destination without tiers", func(t *testing.T) {
		_, err := NewCatalog([]Destination{{ID: "x", Name: "X"}})
		assert.Error(t, err)
	})

	t.Run("rejects threshold above capacity", func(t *testing.T) {
		bad := valid
		bad.Tiers = map[VehicleClass]PricingTier{
			ClassSmall: {FlatRate: 400, PerHeadRate: 150, MinPassengersForFlatRate: 5, MaxCapacity: 3},
		}
		_, err := NewCatalog([]Destination{bad})
		assert.Error(t, err)
	})
}

func TestCatalog_Get_NotFound(t *testing.T) {
	c := Default()

	_, err := c.Get("nowhere")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCatalog_All_PreservesOrder(t *testing.T) {
	c := Default()

	all := c.All()
	require.NotEmpty(t, all)
	assert.Equal(t, "railway-station", all[0].ID)

	// Every compiled-in destination carries both vehicle classes.
	for _, d := range all {
		small, err := d.Tier(ClassSmall)
		require.NoError(t, err)
		assert.Equal(t, 3, small.MaxCapacity)

		big, err := d.Tier(ClassBig)
		require.NoError(t, err)
		assert.Equal(t, 6, big.MaxCapacity)
	}
}

func TestDestination_Tier_MissingClass(t *testing.T) {
	d := Destination{
		ID: "x", Name: "X",
		Tiers: map[VehicleClass]PricingTier{
			ClassSmall: {FlatRate: 1, PerHeadRate: 1, MinPassengersForFlatRate: 1, MaxCapacity: 3},
		},
	}

	_, err := d.Tier(ClassBig)
	assert.Error(t, err)
}

func TestParseVehicleClass(t *testing.T) {
	class, err := ParseVehicleClass("small")
	require.NoError(t, err)
	assert.Equal(t, ClassSmall, class)

	_, err = ParseVehicleClass("sedan")
	assert.Error(t, err)
}
