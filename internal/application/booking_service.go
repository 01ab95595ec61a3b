package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/common/kafka"
	bookingDomain "github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
	"github.com/autopool/service-rides/internal/events"
	"github.com/autopool/service-rides/internal/observability"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	DestinationID  string     `json:"destination_id" binding:"required"`
	VehicleClass   string     `json:"vehicle_class" binding:"required"`
	PassengerCount int        `json:"passenger_count" binding:"required"`
	Mode           string     `json:"mode"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID              uuid.UUID                          `json:"id"`
	RiderID         uuid.UUID                          `json:"rider_id"`
	DriverID        *uuid.UUID                         `json:"driver_id,omitempty"`
	Destination     bookingDomain.DestinationSnapshot  `json:"destination"`
	DestinationCode string                             `json:"destination_code"`
	VehicleClass    string                             `json:"vehicle_class"`
	PassengerCount  int                                `json:"passenger_count"`
	Mode            string                             `json:"mode"`
	ScheduledAt     *time.Time                         `json:"scheduled_at,omitempty"`
	Fare            int64                              `json:"fare"`
	Status          string                             `json:"status"`
	OTP             string                             `json:"otp,omitempty"`
	Version         int64                              `json:"version"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
}

// BookingService is the application service owning the booking lifecycle.
type BookingService struct {
	repo     bookingDomain.Repository
	catalog  *catalog.Catalog
	fares    catalog.FareCalculator
	codes    bookingDomain.CodeGenerator
	guard    *ActiveBookingGuard
	locker   RiderLocker
	producer EventPublisher
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.Repository,
	cat *catalog.Catalog,
	fares catalog.FareCalculator,
	codes bookingDomain.CodeGenerator,
	guard *ActiveBookingGuard,
	locker RiderLocker,
	producer EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:     repo,
		catalog:  cat,
		fares:    fares,
		codes:    codes,
		guard:    guard,
		locker:   locker,
		producer: producer,
		logger:   logger,
	}
}

// CreateBooking validates the request, checks the active-booking invariant
// under a per-rider lock, prices the ride and persists a pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, riderID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	class, err := catalog.ParseVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	dest, err := s.catalog.Get(req.DestinationID)
	if err != nil {
		return nil, err
	}
	tier, err := dest.Tier(class)
	if err != nil {
		return nil, err
	}
	if req.PassengerCount < 1 || req.PassengerCount > tier.MaxCapacity {
		return nil, domain.NewValidationError(fmt.Sprintf(
			"passenger count %d out of range [1, %d]", req.PassengerCount, tier.MaxCapacity))
	}

	mode := bookingDomain.Mode(req.Mode)
	if req.Mode == "" {
		mode = bookingDomain.ModeImmediate
	}

	// Fare is computed once here and never recomputed.
	fare, err := s.fares.Fare(tier, req.PassengerCount)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.DestinationCode(dest.Name)
	if err != nil {
		return nil, err
	}

	// Serialize the guard check and the write per rider; the partial unique
	// index on active bookings backstops anything that slips through.
	release, err := s.locker.AcquireRiderLock(ctx, riderID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.guard.AssertNoActiveBooking(ctx, riderID); err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		riderID,
		bookingDomain.DestinationSnapshot{ID: dest.ID, Name: dest.Name, Lat: dest.Lat, Lng: dest.Lng},
		code,
		class,
		req.PassengerCount,
		mode,
		req.ScheduledAt,
		fare,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, err
	}
	observability.BookingsCreated.Inc()

	s.publishEvent(ctx, events.BookingRequested, bk.ID().String(), events.BookingRequestedEvent{
		BookingID:       bk.ID(),
		RiderID:         riderID,
		DestinationID:   dest.ID,
		DestinationName: dest.Name,
		VehicleClass:    class.String(),
		PassengerCount:  req.PassengerCount,
		Mode:            string(mode),
		ScheduledAt:     req.ScheduledAt,
		Fare:            fare,
		OccurredAt:      time.Now().UTC(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a rider's own booking while it is still pending or
// confirmed.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, requesterID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.RiderID() != requesterID {
		return nil, domain.NewForbiddenError("booking does not belong to this rider")
	}
	return s.cancel(ctx, bk, requesterID)
}

// CancelBookingByAdmin cancels any non-terminal booking (administrative path,
// e.g. a confirmed pool whose driver became unavailable).
func (s *BookingService) CancelBookingByAdmin(ctx context.Context, bookingID, adminID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, bk, adminID)
}

func (s *BookingService) cancel(ctx context.Context, bk *bookingDomain.Booking, by uuid.UUID) (*BookingDTO, error) {
	if err := bk.Cancel(); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	observability.BookingsCancelled.Inc()

	s.publishEvent(ctx, events.BookingCancelled, bk.ID().String(), events.BookingCancelledEvent{
		BookingID:     bk.ID(),
		RiderID:       bk.RiderID(),
		CancelledBy:   by,
		DestinationID: bk.Destination().ID,
		VehicleClass:  bk.VehicleClass().String(),
		OccurredAt:    time.Now().UTC(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteBooking transitions a confirmed booking to completed. Only the
// assigned driver may complete. When otp is non-empty it must match the
// booking's pickup code.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, driverID uuid.UUID, otp string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if otp != "" && otp != bk.OTP() {
		return nil, domain.NewValidationError("otp does not match")
	}

	if err := bk.Complete(driverID); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}
	observability.BookingsCompleted.Inc()

	s.publishEvent(ctx, events.BookingCompleted, bk.ID().String(), events.BookingCompletedEvent{
		BookingID:  bk.ID(),
		RiderID:    bk.RiderID(),
		DriverID:   driverID,
		Fare:       bk.Fare(),
		OccurredAt: time.Now().UTC(),
	})

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetRiderBookings retrieves paginated booking history for a rider, newest first.
func (s *BookingService) GetRiderBookings(ctx context.Context, riderID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByRiderID(ctx, riderID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetDriverBookings retrieves paginated bookings assigned to a driver, newest first.
func (s *BookingService) GetDriverBookings(ctx context.Context, driverID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByDriverID(ctx, driverID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// --- Helpers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:              bk.ID(),
		RiderID:         bk.RiderID(),
		DriverID:        bk.DriverID(),
		Destination:     bk.Destination(),
		DestinationCode: bk.DestinationCode(),
		VehicleClass:    bk.VehicleClass().String(),
		PassengerCount:  bk.PassengerCount(),
		Mode:            string(bk.Mode()),
		ScheduledAt:     bk.ScheduledAt(),
		Fare:            bk.Fare(),
		Status:          bk.Status().String(),
		OTP:             bk.OTP(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func (s *BookingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEvent(ctx, events.TopicBookingEvents, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
