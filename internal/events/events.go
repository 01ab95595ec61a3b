// Package events defines the booking event contract and the Kafka consumers
// that react to it.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventSource identifies this service as the event producer.
const EventSource = "service-rides"

// TopicBookingEvents carries every committed booking status change, keyed by
// booking ID so per-booking commit order is preserved.
const TopicBookingEvents = "booking.events"

// Booking event types.
const (
	BookingRequested = "rides.booking.requested"
	BookingConfirmed = "rides.booking.confirmed"
	BookingCompleted = "rides.booking.completed"
	BookingCancelled = "rides.booking.cancelled"
)

// BookingRequestedEvent is published when a rider creates a pending booking.
type BookingRequestedEvent struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	RiderID         uuid.UUID  `json:"rider_id"`
	DestinationID   string     `json:"destination_id"`
	DestinationName string     `json:"destination_name"`
	VehicleClass    string     `json:"vehicle_class"`
	PassengerCount  int        `json:"passenger_count"`
	Mode            string     `json:"mode"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	Fare            int64      `json:"fare"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// BookingConfirmedEvent is published when the aggregator (or a driver, for a
// partial pool) confirms a booking with an assigned driver.
type BookingConfirmedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	RiderID       uuid.UUID `json:"rider_id"`
	DriverID      uuid.UUID `json:"driver_id"`
	DestinationID string    `json:"destination_id"`
	VehicleClass  string    `json:"vehicle_class"`
	OTP           string    `json:"otp"`
	Fare          int64     `json:"fare"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCompletedEvent is published when the assigned driver finishes the ride.
type BookingCompletedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	RiderID    uuid.UUID `json:"rider_id"`
	DriverID   uuid.UUID `json:"driver_id"`
	Fare       int64     `json:"fare"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when the rider (or an admin) cancels.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	RiderID       uuid.UUID `json:"rider_id"`
	CancelledBy   uuid.UUID `json:"cancelled_by"`
	DestinationID string    `json:"destination_id"`
	VehicleClass  string    `json:"vehicle_class"`
	OccurredAt    time.Time `json:"occurred_at"`
}
