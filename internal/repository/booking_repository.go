package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/autopool/service-rides/internal/common/domain"
	bookingDomain "github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RiderID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	DriverID        *uuid.UUID      `gorm:"type:uuid;index"`
	DestinationID   string          `gorm:"not null;size:64;index:idx_bookings_pool"`
	Destination     json.RawMessage `gorm:"type:jsonb;not null"`
	DestinationCode string          `gorm:"not null;size:8"`
	VehicleClass    string          `gorm:"not null;size:10;index:idx_bookings_pool"`
	PassengerCount  int             `gorm:"not null"`
	Mode            string          `gorm:"not null;size:10"`
	ScheduledAt     *time.Time      `gorm:""`
	Fare            int64           `gorm:"not null"`
	Status          string          `gorm:"not null;size:20;index"`
	OTP             string          `gorm:"size:4"`
	Version         int64           `gorm:"not null;default:1"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindActiveByRiderID retrieves the rider's pending or confirmed booking,
// or nil when the rider has none.
func (r *GormBookingRepository) FindActiveByRiderID(ctx context.Context, riderID uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	err := r.db.WithContext(ctx).
		Where("rider_id = ? AND status IN ?", riderID, []string{
			string(bookingDomain.StatusPending),
			string(bookingDomain.StatusConfirmed),
		}).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active booking: %w", err)
	}
	return toDomainBooking(&model)
}

// FindPendingByPool retrieves pending bookings for one destination and
// vehicle class, oldest first.
func (r *GormBookingRepository) FindPendingByPool(ctx context.Context, destinationID string, class catalog.VehicleClass) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	err := r.db.WithContext(ctx).
		Where("destination_id = ? AND vehicle_class = ? AND status = ?",
			destinationID, string(class), string(bookingDomain.StatusPending)).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending pool bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

// FindByRiderID retrieves a rider's bookings with pagination, newest first.
func (r *GormBookingRepository) FindByRiderID(ctx context.Context, riderID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPaginated(ctx, "rider_id = ?", []interface{}{riderID}, page, limit)
}

// FindByDriverID retrieves bookings assigned to a driver with pagination,
// newest first.
func (r *GormBookingRepository) FindByDriverID(ctx context.Context, driverID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPaginated(ctx, "driver_id = ?", []interface{}{driverID}, page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPaginated(ctx, "", nil, page, limit)
}

func (r *GormBookingRepository) findPaginated(ctx context.Context, cond string, args []interface{}, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	query := r.db.WithContext(ctx).Model(&BookingModel{})
	if cond != "" {
		query = query.Where(cond, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new booking. A unique violation on the active-booking
// partial index means the rider raced a second create past the guard.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("rider already has an active booking")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"driver_id":  model.DriverID,
			"status":     model.Status,
			"otp":        model.OTP,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	destJSON, err := json.Marshal(bk.Destination())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal destination snapshot: %w", err)
	}

	return &BookingModel{
		ID:              bk.ID(),
		RiderID:         bk.RiderID(),
		DriverID:        bk.DriverID(),
		DestinationID:   bk.Destination().ID,
		Destination:     destJSON,
		DestinationCode: bk.DestinationCode(),
		VehicleClass:    bk.VehicleClass().String(),
		PassengerCount:  bk.PassengerCount(),
		Mode:            string(bk.Mode()),
		ScheduledAt:     bk.ScheduledAt(),
		Fare:            bk.Fare(),
		Status:          string(bk.Status()),
		OTP:             bk.OTP(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var dest bookingDomain.DestinationSnapshot
	if err := json.Unmarshal(m.Destination, &dest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination snapshot: %w", err)
	}

	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	class, err := catalog.ParseVehicleClass(m.VehicleClass)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.RiderID,
		m.DriverID,
		dest,
		m.DestinationCode,
		class,
		m.PassengerCount,
		bookingDomain.Mode(m.Mode),
		m.ScheduledAt,
		m.Fare,
		status,
		m.OTP,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
