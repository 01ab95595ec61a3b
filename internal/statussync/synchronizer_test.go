package statussync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/domain/booking"
)

func change(bookingID uuid.UUID, status booking.Status) StatusChange {
	return StatusChange{
		BookingID:  bookingID,
		RiderID:    uuid.New(),
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
}

func TestSynchronizer_DeliversInDispatchOrder(t *testing.T) {
	s := New(zap.NewNop())
	bookingID := uuid.New()

	var seen []booking.Status
	unsubscribe := s.Subscribe(bookingID, func(c StatusChange) {
		seen = append(seen, c.Status)
	})
	defer unsubscribe()

	s.Dispatch(change(bookingID, booking.StatusPending))
	s.Dispatch(change(bookingID, booking.StatusConfirmed))

	assert.Equal(t, []booking.Status{booking.StatusPending, booking.StatusConfirmed}, seen)
}

func TestSynchronizer_IgnoresOtherBookings(t *testing.T) {
	s := New(zap.NewNop())
	bookingID := uuid.New()

	var seen int
	unsubscribe := s.Subscribe(bookingID, func(StatusChange) { seen++ })
	defer unsubscribe()

	s.Dispatch(change(uuid.New(), booking.StatusConfirmed))
	assert.Zero(t, seen)
}

func TestSynchronizer_TerminalDeliversOnceThenCloses(t *testing.T) {
	s := New(zap.NewNop())
	bookingID := uuid.New()

	var seen []booking.Status
	unsubscribe := s.Subscribe(bookingID, func(c StatusChange) {
		seen = append(seen, c.Status)
	})
	defer unsubscribe()

	s.Dispatch(change(bookingID, booking.StatusCancelled))
	// The subscription was auto-closed; nothing further is delivered even if
	// a duplicate terminal event arrives.
	s.Dispatch(change(bookingID, booking.StatusCancelled))

	assert.Equal(t, []booking.Status{booking.StatusCancelled}, seen)
}

func TestSynchronizer_Unsubscribe(t *testing.T) {
	s := New(zap.NewNop())
	bookingID := uuid.New()

	var seen int
	unsubscribe := s.Subscribe(bookingID, func(StatusChange) { seen++ })

	s.Dispatch(change(bookingID, booking.StatusPending))
	unsubscribe()
	s.Dispatch(change(bookingID, booking.StatusConfirmed))

	assert.Equal(t, 1, seen)

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestSynchronizer_MultipleSubscribersSameBooking(t *testing.T) {
	s := New(zap.NewNop())
	bookingID := uuid.New()

	var a, b int
	unsubA := s.Subscribe(bookingID, func(StatusChange) { a++ })
	defer unsubA()
	unsubB := s.Subscribe(bookingID, func(StatusChange) { b++ })
	defer unsubB()

	s.Dispatch(change(bookingID, booking.StatusConfirmed))

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestSynchronizer_DriverSubscription(t *testing.T) {
	s := New(zap.NewNop())
	driverID := uuid.New()

	var seen []uuid.UUID
	unsubscribe := s.SubscribeDriver(driverID, func(c StatusChange) {
		seen = append(seen, c.BookingID)
	})
	defer unsubscribe()

	first := change(uuid.New(), booking.StatusConfirmed)
	first.DriverID = &driverID
	s.Dispatch(first)

	// Changes for other drivers or with no driver are not delivered.
	other := change(uuid.New(), booking.StatusConfirmed)
	otherDriver := uuid.New()
	other.DriverID = &otherDriver
	s.Dispatch(other)
	s.Dispatch(change(uuid.New(), booking.StatusPending))

	// Terminal changes on the driver's bookings still flow; driver
	// subscriptions survive them.
	second := change(uuid.New(), booking.StatusCompleted)
	second.DriverID = &driverID
	s.Dispatch(second)

	require.Len(t, seen, 2)
	assert.Equal(t, first.BookingID, seen[0])
	assert.Equal(t, second.BookingID, seen[1])
}
