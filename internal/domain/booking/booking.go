package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// Mode distinguishes rides wanted now from rides booked for later.
type Mode string

const (
	ModeImmediate Mode = "immediate"
	ModeScheduled Mode = "scheduled"
)

// IsValid returns true if the mode is recognized.
func (m Mode) IsValid() bool {
	return m == ModeImmediate || m == ModeScheduled
}

// DestinationSnapshot is the destination denormalized onto the booking at
// creation time, so history survives catalog changes.
type DestinationSnapshot struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Booking is the aggregate root for one rider's pooled ride request.
type Booking struct {
	id              uuid.UUID
	riderID         uuid.UUID
	driverID        *uuid.UUID
	destination     DestinationSnapshot
	destinationCode string
	vehicleClass    catalog.VehicleClass
	passengerCount  int
	mode            Mode
	scheduledAt     *time.Time
	fare            int64
	status          Status
	otp             string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a pending booking. The fare and destination code are
// computed by the caller and immutable afterwards.
func NewBooking(
	riderID uuid.UUID,
	destination DestinationSnapshot,
	destinationCode string,
	vehicleClass catalog.VehicleClass,
	passengerCount int,
	mode Mode,
	scheduledAt *time.Time,
	fare int64,
) (*Booking, error) {
	if riderID == uuid.Nil {
		return nil, domain.NewValidationError("rider ID is required")
	}
	if destination.ID == "" {
		return nil, domain.NewValidationError("destination is required")
	}
	if !vehicleClass.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid vehicle class: %s", vehicleClass))
	}
	if passengerCount < 1 {
		return nil, domain.NewValidationError("passenger count must be at least 1")
	}
	if !mode.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid booking mode: %s", mode))
	}
	if mode == ModeScheduled && scheduledAt == nil {
		return nil, domain.NewValidationError("scheduled bookings require a scheduled time")
	}
	if mode == ModeImmediate && scheduledAt != nil {
		return nil, domain.NewValidationError("immediate bookings must not carry a scheduled time")
	}
	if fare <= 0 {
		return nil, domain.NewValidationError("fare must be positive")
	}

	now := time.Now().UTC()
	return &Booking{
		id:              uuid.New(),
		riderID:         riderID,
		destination:     destination,
		destinationCode: destinationCode,
		vehicleClass:    vehicleClass,
		passengerCount:  passengerCount,
		mode:            mode,
		scheduledAt:     scheduledAt,
		fare:            fare,
		status:          StatusPending,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	riderID uuid.UUID,
	driverID *uuid.UUID,
	destination DestinationSnapshot,
	destinationCode string,
	vehicleClass catalog.VehicleClass,
	passengerCount int,
	mode Mode,
	scheduledAt *time.Time,
	fare int64,
	status Status,
	otp string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		riderID:         riderID,
		driverID:        driverID,
		destination:     destination,
		destinationCode: destinationCode,
		vehicleClass:    vehicleClass,
		passengerCount:  passengerCount,
		mode:            mode,
		scheduledAt:     scheduledAt,
		fare:            fare,
		status:          status,
		otp:             otp,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// RiderID returns the owning rider's user ID.
func (b *Booking) RiderID() uuid.UUID { return b.riderID }

// DriverID returns the assigned driver's user ID, or nil before confirmation.
func (b *Booking) DriverID() *uuid.UUID { return b.driverID }

// Destination returns the destination snapshot taken at creation time.
func (b *Booking) Destination() DestinationSnapshot { return b.destination }

// DestinationCode returns the cosmetic, non-unique booking code.
func (b *Booking) DestinationCode() string { return b.destinationCode }

// VehicleClass returns the requested vehicle class.
func (b *Booking) VehicleClass() catalog.VehicleClass { return b.vehicleClass }

// PassengerCount returns the seats requested by this booking.
func (b *Booking) PassengerCount() int { return b.passengerCount }

// Mode returns immediate or scheduled.
func (b *Booking) Mode() Mode { return b.mode }

// ScheduledAt returns the requested departure time, or nil if immediate.
func (b *Booking) ScheduledAt() *time.Time { return b.scheduledAt }

// Fare returns the fare computed at creation, in rupees.
func (b *Booking) Fare() int64 { return b.fare }

// Status returns the current booking status.
func (b *Booking) Status() Status { return b.status }

// OTP returns the pickup code, or empty before confirmation.
func (b *Booking) OTP() string { return b.otp }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Confirm transitions the booking from pending to confirmed with the
// assigned driver and a pickup OTP.
func (b *Booking) Confirm(driverID uuid.UUID, otp string) error {
	if !b.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	if driverID == uuid.Nil {
		return domain.NewValidationError("driver ID is required")
	}
	if len(otp) != 4 {
		return domain.NewValidationError("otp must be 4 digits")
	}
	b.driverID = &driverID
	b.otp = otp
	b.status = StatusConfirmed
	b.updatedAt = time.Now().UTC()
	return nil
}

// Complete transitions the booking from confirmed to completed. Only the
// assigned driver may complete; the check lives here so no caller can skip it.
func (b *Booking) Complete(driverID uuid.UUID) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if b.driverID == nil || *b.driverID != driverID {
		return domain.NewForbiddenError("booking is not assigned to this driver")
	}
	b.status = StatusCompleted
	b.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions the booking to cancelled from any non-terminal state.
func (b *Booking) Cancel() error {
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	b.status = StatusCancelled
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
