// Package statussync fans booking status changes out to in-process
// subscribers, typically websocket sessions. Changes are delivered in the
// order they are dispatched, and a subscription for a booking that reaches
// a terminal status receives that final change and is then closed.
package statussync

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/observability"
)

// StatusChange is one committed booking transition.
type StatusChange struct {
	BookingID  uuid.UUID      `json:"booking_id"`
	RiderID    uuid.UUID      `json:"rider_id"`
	DriverID   *uuid.UUID     `json:"driver_id,omitempty"`
	Status     booking.Status `json:"status"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Handler receives status changes. Handlers run on the dispatching
// goroutine and must not block; hand off to a buffered channel.
type Handler func(StatusChange)

// Synchronizer routes status changes to per-booking and per-driver
// subscribers.
type Synchronizer struct {
	mu        sync.Mutex
	nextID    int
	byBooking map[uuid.UUID]map[int]Handler
	byDriver  map[uuid.UUID]map[int]Handler
	logger    *zap.Logger
}

// New creates a Synchronizer.
func New(logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		byBooking: make(map[uuid.UUID]map[int]Handler),
		byDriver:  make(map[uuid.UUID]map[int]Handler),
		logger:    logger,
	}
}

// Subscribe registers a handler for one booking's status changes. The
// returned function unsubscribes; it is safe to call after the
// subscription was auto-closed by a terminal status.
func (s *Synchronizer) Subscribe(bookingID uuid.UUID, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.byBooking[bookingID] == nil {
		s.byBooking[bookingID] = make(map[int]Handler)
	}
	s.byBooking[bookingID][id] = h
	observability.StatusSubscriptions.Inc()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removeBookingSub(bookingID, id)
	}
}

// SubscribeDriver registers a handler for every change on bookings assigned
// to one driver. Driver subscriptions are not auto-closed by terminal
// statuses since new bookings keep arriving.
func (s *Synchronizer) SubscribeDriver(driverID uuid.UUID, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.byDriver[driverID] == nil {
		s.byDriver[driverID] = make(map[int]Handler)
	}
	s.byDriver[driverID][id] = h
	observability.StatusSubscriptions.Inc()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.byDriver[driverID]; ok {
			if _, present := subs[id]; present {
				delete(subs, id)
				observability.StatusSubscriptions.Dec()
			}
			if len(subs) == 0 {
				delete(s.byDriver, driverID)
			}
		}
	}
}

func (s *Synchronizer) removeBookingSub(bookingID uuid.UUID, id int) {
	subs, ok := s.byBooking[bookingID]
	if !ok {
		return
	}
	if _, present := subs[id]; present {
		delete(subs, id)
		observability.StatusSubscriptions.Dec()
	}
	if len(subs) == 0 {
		delete(s.byBooking, bookingID)
	}
}

// Dispatch delivers one committed change to all matching subscribers.
// Delivery happens under the synchronizer's lock so subscribers observe
// changes in dispatch order. A terminal status closes the booking's
// subscriptions after this final delivery.
func (s *Synchronizer) Dispatch(change StatusChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.byBooking[change.BookingID] {
		h(change)
	}
	if change.DriverID != nil {
		for _, h := range s.byDriver[*change.DriverID] {
			h(change)
		}
	}

	if change.Status.IsTerminal() {
		if subs, ok := s.byBooking[change.BookingID]; ok {
			count := len(subs)
			delete(s.byBooking, change.BookingID)
			observability.StatusSubscriptions.Sub(float64(count))
			s.logger.Debug("closed subscriptions for terminal booking",
				zap.String("booking_id", change.BookingID.String()),
				zap.String("status", change.Status.String()),
				zap.Int("subscribers", count),
			)
		}
	}
}
