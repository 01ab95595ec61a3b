package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// DriverModel is the GORM model for the drivers roster.
type DriverModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name           string     `gorm:"not null;size:100"`
	VehicleClass   string     `gorm:"not null;size:10;index"`
	Active         bool       `gorm:"not null;default:true;index"`
	LastAssignedAt *time.Time `gorm:""`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (DriverModel) TableName() string {
	return "drivers"
}

// GormDriverAssigner picks drivers from the roster, least recently assigned
// first, so load spreads across the fleet.
type GormDriverAssigner struct {
	db *gorm.DB
}

// NewGormDriverAssigner creates a new GormDriverAssigner.
func NewGormDriverAssigner(db *gorm.DB) *GormDriverAssigner {
	return &GormDriverAssigner{db: db}
}

// AssignDriver selects an active driver of the given vehicle class and stamps
// the assignment time.
func (a *GormDriverAssigner) AssignDriver(ctx context.Context, destinationID string, class catalog.VehicleClass) (uuid.UUID, error) {
	var model DriverModel
	err := a.db.WithContext(ctx).
		Where("vehicle_class = ? AND active = ?", string(class), true).
		Order("last_assigned_at ASC NULLS FIRST").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, domain.NewNotFoundError("Driver", string(class))
		}
		return uuid.Nil, fmt.Errorf("failed to select driver: %w", err)
	}

	now := time.Now().UTC()
	if err := a.db.WithContext(ctx).
		Model(&DriverModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"last_assigned_at": now,
			"updated_at":       now,
		}).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to stamp driver assignment: %w", err)
	}

	return model.ID, nil
}
