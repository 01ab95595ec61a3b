package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/autopool/service-rides/internal/common/kafka"
	"github.com/autopool/service-rides/internal/domain/catalog"
)

// EventPublisher publishes booking events. Satisfied by the Kafka producer;
// tests substitute an in-memory recorder.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// RiderLocker serializes booking creation per rider, narrowing the
// check-then-create race on the active-booking invariant. The returned
// release function must be called once the create commits or fails.
type RiderLocker interface {
	AcquireRiderLock(ctx context.Context, riderID uuid.UUID) (release func(), err error)
}

// DriverAssigner selects a driver for a ready pool. Driver selection is an
// external collaborator; only the boundary lives here.
type DriverAssigner interface {
	AssignDriver(ctx context.Context, destinationID string, class catalog.VehicleClass) (uuid.UUID, error)
}
