package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
	"github.com/autopool/service-rides/internal/events"
)

func newBookingService(repo *memoryRepository, publisher *recordingPublisher, locker RiderLocker) *BookingService {
	return NewBookingService(
		repo,
		catalog.Default(),
		catalog.NewTieredFareCalculator(),
		fixedCodes{},
		NewActiveBookingGuard(repo),
		locker,
		publisher,
		zap.NewNop(),
	)
}

func TestBookingService_CreateBooking(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &recordingPublisher{}
	svc := newBookingService(repo, publisher, noopLocker{})
	riderID := uuid.New()

	dto, err := svc.CreateBooking(context.Background(), riderID, CreateBookingRequest{
		DestinationID:  "airport",
		VehicleClass:   "small",
		PassengerCount: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, riderID, dto.RiderID)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "immediate", dto.Mode)
	assert.Equal(t, "TE42", dto.DestinationCode)
	// 2 passengers at the small-auto threshold: per-head 150 each.
	assert.Equal(t, int64(300), dto.Fare)

	assert.Equal(t, []string{events.BookingRequested}, publisher.typesSeen())
}

func TestBookingService_CreateBooking_Validation(t *testing.T) {
	repo := newMemoryRepository()
	svc := newBookingService(repo, &recordingPublisher{}, noopLocker{})
	riderID := uuid.New()

	tests := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"unknown destination", CreateBookingRequest{DestinationID: "nowhere", VehicleClass: "small", PassengerCount: 1}},
		{"unknown vehicle class", CreateBookingRequest{DestinationID: "airport", VehicleClass: "sedan", PassengerCount: 1}},
		{"too many passengers", CreateBookingRequest{DestinationID: "airport", VehicleClass: "small", PassengerCount: 4}},
		{"zero passengers", CreateBookingRequest{DestinationID: "airport", VehicleClass: "small", PassengerCount: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), riderID, tt.req)
			assert.Error(t, err)
		})
	}
}

func TestBookingService_CreateBooking_ActiveGuard(t *testing.T) {
	repo := newMemoryRepository()
	svc := newBookingService(repo, &recordingPublisher{}, noopLocker{})
	riderID := uuid.New()

	req := CreateBookingRequest{DestinationID: "airport", VehicleClass: "small", PassengerCount: 1}
	_, err := svc.CreateBooking(context.Background(), riderID, req)
	require.NoError(t, err)

	// A second booking while the first is pending conflicts.
	_, err = svc.CreateBooking(context.Background(), riderID, req)
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)

	// Another rider is unaffected.
	_, err = svc.CreateBooking(context.Background(), uuid.New(), req)
	assert.NoError(t, err)
}

func TestBookingService_CreateBooking_AfterTerminal(t *testing.T) {
	repo := newMemoryRepository()
	svc := newBookingService(repo, &recordingPublisher{}, noopLocker{})
	riderID := uuid.New()

	req := CreateBookingRequest{DestinationID: "airport", VehicleClass: "small", PassengerCount: 1}
	first, err := svc.CreateBooking(context.Background(), riderID, req)
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), first.ID, riderID)
	require.NoError(t, err)

	// A cancelled booking no longer blocks a new one.
	_, err = svc.CreateBooking(context.Background(), riderID, req)
	assert.NoError(t, err)
}

func TestBookingService_CreateBooking_LockHeld(t *testing.T) {
	repo := newMemoryRepository()
	svc := newBookingService(repo, &recordingPublisher{}, deniedLocker{})

	_, err := svc.CreateBooking(context.Background(), uuid.New(), CreateBookingRequest{
		DestinationID: "airport", VehicleClass: "small", PassengerCount: 1,
	})
	var conflictErr *domain.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestBookingService_CancelBooking(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &recordingPublisher{}
	svc := newBookingService(repo, publisher, noopLocker{})
	riderID := uuid.New()

	dto, err := svc.CreateBooking(context.Background(), riderID, CreateBookingRequest{
		DestinationID: "airport", VehicleClass: "small", PassengerCount: 1,
	})
	require.NoError(t, err)

	t.Run("other riders cannot cancel", func(t *testing.T) {
		_, err := svc.CancelBooking(context.Background(), dto.ID, uuid.New())
		var forbidden *domain.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("owner cancels", func(t *testing.T) {
		cancelled, err := svc.CancelBooking(context.Background(), dto.ID, riderID)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", cancelled.Status)
		assert.Contains(t, publisher.typesSeen(), events.BookingCancelled)
	})

	t.Run("double cancel is an invalid transition", func(t *testing.T) {
		_, err := svc.CancelBooking(context.Background(), dto.ID, riderID)
		var stateErr *domain.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	})
}

func TestBookingService_CompleteBooking(t *testing.T) {
	repo := newMemoryRepository()
	publisher := &recordingPublisher{}
	svc := newBookingService(repo, publisher, noopLocker{})
	riderID := uuid.New()
	driverID := uuid.New()

	dto, err := svc.CreateBooking(context.Background(), riderID, CreateBookingRequest{
		DestinationID: "airport", VehicleClass: "small", PassengerCount: 1,
	})
	require.NoError(t, err)

	t.Run("pending booking cannot complete", func(t *testing.T) {
		_, err := svc.CompleteBooking(context.Background(), dto.ID, driverID, "")
		var stateErr *domain.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	})

	// Confirm through the repository as the aggregator would.
	bk, err := repo.FindByID(context.Background(), dto.ID)
	require.NoError(t, err)
	require.NoError(t, bk.Confirm(driverID, "1234"))
	bk.IncrementVersion()
	require.NoError(t, repo.Update(context.Background(), bk))

	t.Run("wrong driver is forbidden", func(t *testing.T) {
		_, err := svc.CompleteBooking(context.Background(), dto.ID, uuid.New(), "")
		var forbidden *domain.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("wrong otp rejected", func(t *testing.T) {
		_, err := svc.CompleteBooking(context.Background(), dto.ID, driverID, "9999")
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("assigned driver with matching otp completes", func(t *testing.T) {
		completed, err := svc.CompleteBooking(context.Background(), dto.ID, driverID, "1234")
		require.NoError(t, err)
		assert.Equal(t, "completed", completed.Status)
		assert.Contains(t, publisher.typesSeen(), events.BookingCompleted)
	})

	t.Run("double complete is an invalid transition", func(t *testing.T) {
		_, err := svc.CompleteBooking(context.Background(), dto.ID, driverID, "1234")
		var stateErr *domain.InvalidStateError
		assert.ErrorAs(t, err, &stateErr)
	})
}

func TestBookingService_GetBookingStats(t *testing.T) {
	repo := newMemoryRepository()
	svc := newBookingService(repo, &recordingPublisher{}, noopLocker{})

	riderA := uuid.New()
	riderB := uuid.New()
	req := CreateBookingRequest{DestinationID: "airport", VehicleClass: "small", PassengerCount: 1}

	first, err := svc.CreateBooking(context.Background(), riderA, req)
	require.NoError(t, err)
	_, err = svc.CreateBooking(context.Background(), riderB, req)
	require.NoError(t, err)
	_, err = svc.CancelBooking(context.Background(), first.ID, riderA)
	require.NoError(t, err)

	stats, err := svc.GetBookingStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus[booking.StatusPending.String()])
	assert.Equal(t, int64(1), stats.ByStatus[booking.StatusCancelled.String()])
}
