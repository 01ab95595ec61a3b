package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/common/domain"
	bookingDomain "github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/repository"
)

// LocationStore persists last-known user positions.
type LocationStore interface {
	Set(ctx context.Context, loc repository.UserLocation) error
	Get(ctx context.Context, userID uuid.UUID) (repository.UserLocation, error)
}

// LocationService handles live position reporting and the rider-facing
// "where is my auto" lookup.
type LocationService struct {
	store  LocationStore
	repo   bookingDomain.Repository
	logger *zap.Logger
}

// NewLocationService creates a new LocationService.
func NewLocationService(store LocationStore, repo bookingDomain.Repository, logger *zap.Logger) *LocationService {
	return &LocationService{store: store, repo: repo, logger: logger}
}

// ReportLocation stores the caller's current position.
func (s *LocationService) ReportLocation(ctx context.Context, userID uuid.UUID, lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return domain.NewValidationError("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return domain.NewValidationError("longitude must be between -180 and 180")
	}
	return s.store.Set(ctx, repository.UserLocation{
		UserID:    userID,
		Lat:       lat,
		Lng:       lng,
		Timestamp: time.Now().UTC(),
	})
}

// GetDriverLocation returns the position of the driver assigned to the
// rider's booking. Only the booking's rider may look it up.
func (s *LocationService) GetDriverLocation(ctx context.Context, bookingID, riderID uuid.UUID) (repository.UserLocation, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return repository.UserLocation{}, err
	}
	if bk.RiderID() != riderID {
		return repository.UserLocation{}, domain.NewForbiddenError("booking does not belong to this rider")
	}
	if bk.DriverID() == nil {
		return repository.UserLocation{}, domain.NewNotFoundError("Location", bookingID.String())
	}
	return s.store.Get(ctx, *bk.DriverID())
}
