package catalog

import (
	"fmt"

	"github.com/autopool/service-rides/internal/common/domain"
)

// VehicleClass is the auto-rickshaw capacity tier.
type VehicleClass string

const (
	ClassSmall VehicleClass = "small"
	ClassBig   VehicleClass = "big"
)

// IsValid returns true if the class is a recognized vehicle class.
func (v VehicleClass) IsValid() bool {
	return v == ClassSmall || v == ClassBig
}

// String returns the string representation of the class.
func (v VehicleClass) String() string {
	return string(v)
}

// ParseVehicleClass converts a string to a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	class := VehicleClass(s)
	if !class.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid vehicle class: %s", s))
	}
	return class, nil
}

// PricingTier is the fare schedule of one destination for one vehicle class.
// Below the flat-rate threshold riders pay per head; at or above it the
// vehicle is chartered as a unit for the flat rate.
type PricingTier struct {
	FlatRate                 int64 `json:"flat_rate"`
	PerHeadRate              int64 `json:"per_head_rate"`
	MinPassengersForFlatRate int   `json:"min_passengers_for_flat_rate"`
	MaxCapacity              int   `json:"max_capacity"`
}

func (t PricingTier) validate() error {
	if t.MaxCapacity <= 0 {
		return fmt.Errorf("max capacity must be positive")
	}
	if t.MinPassengersForFlatRate > t.MaxCapacity {
		return fmt.Errorf("flat-rate threshold %d exceeds capacity %d",
			t.MinPassengersForFlatRate, t.MaxCapacity)
	}
	if t.FlatRate <= 0 || t.PerHeadRate <= 0 {
		return fmt.Errorf("rates must be positive")
	}
	return nil
}

// Destination is a fixed ride target with per-class fare schedules.
// Destinations are loaded once at startup and never mutated.
type Destination struct {
	ID    string                       `json:"id"`
	Name  string                       `json:"name"`
	Lat   float64                      `json:"lat"`
	Lng   float64                      `json:"lng"`
	Tiers map[VehicleClass]PricingTier `json:"tiers"`
}

// Tier returns the pricing tier for the vehicle class.
func (d Destination) Tier(class VehicleClass) (PricingTier, error) {
	tier, ok := d.Tiers[class]
	if !ok {
		return PricingTier{}, domain.NewValidationError(
			fmt.Sprintf("destination %s has no %s tier", d.ID, class))
	}
	return tier, nil
}

// Catalog is the static destination registry.
type Catalog struct {
	byID  map[string]Destination
	order []string
}

// NewCatalog builds a catalog from the given destinations, validating every
// pricing tier.
func NewCatalog(destinations []Destination) (*Catalog, error) {
	byID := make(map[string]Destination, len(destinations))
	order := make([]string, 0, len(destinations))
	for _, d := range destinations {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("destination must have id and name")
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate destination id: %s", d.ID)
		}
		if len(d.Tiers) == 0 {
			return nil, fmt.Errorf("destination %s has no pricing tiers", d.ID)
		}
		for class, tier := range d.Tiers {
			if !class.IsValid() {
				return nil, fmt.Errorf("destination %s: unknown vehicle class %s", d.ID, class)
			}
			if err := tier.validate(); err != nil {
				return nil, fmt.Errorf("destination %s, class %s: %w", d.ID, class, err)
			}
		}
		byID[d.ID] = d
		order = append(order, d.ID)
	}
	return &Catalog{byID: byID, order: order}, nil
}

// Get returns the destination with the given id.
func (c *Catalog) Get(id string) (Destination, error) {
	d, ok := c.byID[id]
	if !ok {
		return Destination{}, domain.NewNotFoundError("Destination", id)
	}
	return d, nil
}

// All returns destinations in registration order.
func (c *Catalog) All() []Destination {
	out := make([]Destination, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Default returns the production destination registry.
func Default() *Catalog {
	c, err := NewCatalog(defaultDestinations())
	if err != nil {
		// The default registry is compiled in; a bad entry is a programmer error.
		panic(err)
	}
	return c
}

func defaultDestinations() []Destination {
	smallTier := func(perHead, flat int64) PricingTier {
		return PricingTier{PerHeadRate: perHead, FlatRate: flat, MinPassengersForFlatRate: 2, MaxCapacity: 3}
	}
	bigTier := func(perHead, flat int64) PricingTier {
		return PricingTier{PerHeadRate: perHead, FlatRate: flat, MinPassengersForFlatRate: 4, MaxCapacity: 6}
	}

	return []Destination{
		{
			ID: "railway-station", Name: "Railway Station", Lat: 17.4337, Lng: 78.5010,
			Tiers: map[VehicleClass]PricingTier{
				ClassSmall: smallTier(60, 150),
				ClassBig:   bigTier(40, 200),
			},
		},
		{
			ID: "airport", Name: "Airport", Lat: 17.2403, Lng: 78.4294,
			Tiers: map[VehicleClass]PricingTier{
				ClassSmall: smallTier(150, 400),
				ClassBig:   bigTier(100, 500),
			},
		},
		{
			ID: "city-centre", Name: "City Centre Mall", Lat: 17.3984, Lng: 78.4867,
			Tiers: map[VehicleClass]PricingTier{
				ClassSmall: smallTier(50, 120),
				ClassBig:   bigTier(35, 180),
			},
		},
		{
			ID: "bus-stand", Name: "Bus Stand", Lat: 17.3785, Lng: 78.4843,
			Tiers: map[VehicleClass]PricingTier{
				ClassSmall: smallTier(40, 100),
				ClassBig:   bigTier(30, 150),
			},
		},
		{
			ID: "tech-park", Name: "Tech Park", Lat: 17.4435, Lng: 78.3772,
			Tiers: map[VehicleClass]PricingTier{
				ClassSmall: smallTier(80, 200),
				ClassBig:   bigTier(60, 300),
			},
		},
	}
}
