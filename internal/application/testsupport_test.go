package application

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/common/kafka"
	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// memoryRepository is an in-memory booking.Repository with the same
// optimistic-locking behavior as the GORM implementation.
type memoryRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*booking.Booking
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{bookings: make(map[uuid.UUID]*booking.Booking)}
}

func (r *memoryRepository) clone(bk *booking.Booking) *booking.Booking {
	return booking.ReconstructBooking(
		bk.ID(), bk.RiderID(), bk.DriverID(), bk.Destination(), bk.DestinationCode(),
		bk.VehicleClass(), bk.PassengerCount(), bk.Mode(), bk.ScheduledAt(), bk.Fare(),
		bk.Status(), bk.OTP(), bk.Version(), bk.CreatedAt(), bk.UpdatedAt(),
	)
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return r.clone(bk), nil
}

func (r *memoryRepository) FindActiveByRiderID(_ context.Context, riderID uuid.UUID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.bookings {
		if bk.RiderID() == riderID && bk.Status().IsActive() {
			return r.clone(bk), nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) FindPendingByPool(_ context.Context, destinationID string, class catalog.VehicleClass) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.Destination().ID == destinationID && bk.VehicleClass() == class && bk.Status() == booking.StatusPending {
			out = append(out, r.clone(bk))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *memoryRepository) FindByRiderID(_ context.Context, riderID uuid.UUID, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.RiderID() == riderID {
			out = append(out, r.clone(bk))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, int64(len(out)), nil
}

func (r *memoryRepository) FindByDriverID(_ context.Context, driverID uuid.UUID, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		if bk.DriverID() != nil && *bk.DriverID() == driverID {
			out = append(out, r.clone(bk))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepository) ListAll(_ context.Context, page, limit int) ([]*booking.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, bk := range r.bookings {
		out = append(out, r.clone(bk))
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepository) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[bk.Status().String()]++
	}
	return counts, nil
}

func (r *memoryRepository) Save(_ context.Context, bk *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.RiderID() == bk.RiderID() && existing.Status().IsActive() {
			return domain.NewConflictError("rider already has an active booking")
		}
	}
	r.bookings[bk.ID()] = r.clone(bk)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, bk *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.bookings[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	if existing.Version() != bk.Version()-1 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.bookings[bk.ID()] = r.clone(bk)
	return nil
}

// recordingPublisher captures published events instead of touching Kafka.
type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

// noopLocker always grants the rider lock.
type noopLocker struct{}

func (noopLocker) AcquireRiderLock(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}

// deniedLocker simulates a concurrent create holding the lock.
type deniedLocker struct{}

func (deniedLocker) AcquireRiderLock(context.Context, uuid.UUID) (func(), error) {
	return nil, domain.NewConflictError("another booking request for this rider is in progress")
}

// fixedAssigner hands out one known driver.
type fixedAssigner struct {
	driverID uuid.UUID
}

func (a fixedAssigner) AssignDriver(context.Context, string, catalog.VehicleClass) (uuid.UUID, error) {
	return a.driverID, nil
}

// fixedCodes returns deterministic codes.
type fixedCodes struct{}

func (fixedCodes) DestinationCode(string) (string, error) { return "TE42", nil }
func (fixedCodes) OTP() (string, error)                   { return "1234", nil }
