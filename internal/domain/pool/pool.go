// Package pool models the derived carpool grouping. A pool is never
// persisted: it is recomputed from the pending set on each observation.
package pool

import (
	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// Pool is the set of pending bookings sharing a destination and vehicle
// class, ordered by creation time ascending.
type Pool struct {
	DestinationID string
	VehicleClass  catalog.VehicleClass
	Capacity      int
	Members       []*booking.Booking
}

// SeatsBooked returns the total passengers across members.
func (p Pool) SeatsBooked() int {
	total := 0
	for _, m := range p.Members {
		total += m.PassengerCount()
	}
	return total
}

// FillLevel returns booked seats as a fraction of vehicle capacity.
func (p Pool) FillLevel() float64 {
	if p.Capacity == 0 {
		return 0
	}
	return float64(p.SeatsBooked()) / float64(p.Capacity)
}

// SelectVehicleLoad picks the members of the next vehicle: walk the pending
// set FCFS, include a booking while it still fits, skip bookings that would
// overflow (they wait for the next vehicle). full is true when the selected
// load reaches capacity exactly, the automatic confirmation trigger.
func (p Pool) SelectVehicleLoad() (selected []*booking.Booking, full bool) {
	seats := 0
	for _, m := range p.Members {
		if seats+m.PassengerCount() > p.Capacity {
			continue
		}
		selected = append(selected, m)
		seats += m.PassengerCount()
		if seats == p.Capacity {
			return selected, true
		}
	}
	return selected, false
}
