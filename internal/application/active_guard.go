package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/domain/booking"
)

// ActiveBookingGuard enforces the one-active-booking-per-rider invariant.
// It is read-only; the write-side protection is the partial unique index on
// active bookings plus the per-rider creation lock.
type ActiveBookingGuard struct {
	repo booking.Repository
}

// NewActiveBookingGuard creates a guard over the booking repository.
func NewActiveBookingGuard(repo booking.Repository) *ActiveBookingGuard {
	return &ActiveBookingGuard{repo: repo}
}

// HasActiveBooking reports whether the rider has a booking in pending or
// confirmed state.
func (g *ActiveBookingGuard) HasActiveBooking(ctx context.Context, riderID uuid.UUID) (bool, error) {
	active, err := g.repo.FindActiveByRiderID(ctx, riderID)
	if err != nil {
		return false, fmt.Errorf("failed to query active booking: %w", err)
	}
	return active != nil, nil
}

// AssertNoActiveBooking returns a ConflictError when the rider already has
// an active booking.
func (g *ActiveBookingGuard) AssertNoActiveBooking(ctx context.Context, riderID uuid.UUID) error {
	has, err := g.HasActiveBooking(ctx, riderID)
	if err != nil {
		return err
	}
	if has {
		return domain.NewConflictError("rider already has an active booking")
	}
	return nil
}
