package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/domain/catalog"
)

// Repository defines the persistence contract for booking aggregates.
// Bookings are never deleted; terminal bookings are retained as history.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindActiveByRiderID retrieves the rider's booking in pending or
	// confirmed state, or nil when the rider has no active booking.
	FindActiveByRiderID(ctx context.Context, riderID uuid.UUID) (*Booking, error)

	// FindPendingByPool retrieves all pending bookings for one destination
	// and vehicle class, ordered by creation time ascending (FCFS).
	FindPendingByPool(ctx context.Context, destinationID string, class catalog.VehicleClass) ([]*Booking, error)

	// FindByRiderID retrieves a rider's bookings, newest first, with pagination.
	FindByRiderID(ctx context.Context, riderID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByDriverID retrieves bookings assigned to a driver, newest first,
	// with pagination.
	FindByDriverID(ctx context.Context, driverID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, b *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, b *Booking) error
}
