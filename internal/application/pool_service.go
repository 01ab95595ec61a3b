package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/common/domain"
	"github.com/autopool/service-rides/internal/common/kafka"
	bookingDomain "github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/domain/catalog"
	"github.com/autopool/service-rides/internal/domain/pool"
	"github.com/autopool/service-rides/internal/events"
	"github.com/autopool/service-rides/internal/observability"
)

// Confirmation triggers reported in metrics and logs.
const (
	triggerCapacity = "capacity"
	triggerDriver   = "driver"
)

// PoolDTO is the response representation of an open pool.
type PoolDTO struct {
	DestinationID   string       `json:"destination_id"`
	DestinationName string       `json:"destination_name"`
	VehicleClass    string       `json:"vehicle_class"`
	Capacity        int          `json:"capacity"`
	SeatsBooked     int          `json:"seats_booked"`
	FillLevel       float64      `json:"fill_level"`
	Members         []BookingDTO `json:"members"`
}

// PoolService is the carpool aggregator: it decides when a pool's pending
// bookings become confirmed and stamps them with a driver and OTPs.
type PoolService struct {
	repo     bookingDomain.Repository
	catalog  *catalog.Catalog
	assigner DriverAssigner
	codes    bookingDomain.CodeGenerator
	producer EventPublisher
	logger   *zap.Logger
}

// NewPoolService creates a new PoolService.
func NewPoolService(
	repo bookingDomain.Repository,
	cat *catalog.Catalog,
	assigner DriverAssigner,
	codes bookingDomain.CodeGenerator,
	producer EventPublisher,
	logger *zap.Logger,
) *PoolService {
	return &PoolService{
		repo:     repo,
		catalog:  cat,
		assigner: assigner,
		codes:    codes,
		producer: producer,
		logger:   logger,
	}
}

// loadPool recomputes the pool for one destination and vehicle class from
// the pending set. Pools are derived, never stored.
func (s *PoolService) loadPool(ctx context.Context, destinationID string, class catalog.VehicleClass) (pool.Pool, error) {
	dest, err := s.catalog.Get(destinationID)
	if err != nil {
		return pool.Pool{}, err
	}
	tier, err := dest.Tier(class)
	if err != nil {
		return pool.Pool{}, err
	}

	members, err := s.repo.FindPendingByPool(ctx, destinationID, class)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("failed to load pending pool: %w", err)
	}
	return pool.Pool{
		DestinationID: destinationID,
		VehicleClass:  class,
		Capacity:      tier.MaxCapacity,
		Members:       members,
	}, nil
}

// EvaluateDestination re-evaluates one pool after a change to its pending
// set. When a vehicle load reaches capacity it is confirmed; the loop keeps
// going because the remaining (skipped) bookings may fill another vehicle.
func (s *PoolService) EvaluateDestination(ctx context.Context, destinationID string, class catalog.VehicleClass) error {
	for {
		p, err := s.loadPool(ctx, destinationID, class)
		if err != nil {
			return err
		}

		load, full := p.SelectVehicleLoad()
		if !full {
			return nil
		}

		if err := s.confirmLoad(ctx, p, load, triggerCapacity); err != nil {
			return err
		}
	}
}

// ConfirmPartialPool is the driver-invoked alternative path: a driver claims
// an unfilled pool (e.g. a scheduled ride whose window arrived) and its
// current members are confirmed at whatever fill level they have.
func (s *PoolService) ConfirmPartialPool(ctx context.Context, destinationID string, class catalog.VehicleClass, driverID uuid.UUID) error {
	p, err := s.loadPool(ctx, destinationID, class)
	if err != nil {
		return err
	}
	if len(p.Members) == 0 {
		return domain.NewNotFoundError("Pool", fmt.Sprintf("%s/%s", destinationID, class))
	}

	load, _ := p.SelectVehicleLoad()
	return s.confirmMembers(ctx, p, load, driverID, triggerDriver)
}

func (s *PoolService) confirmLoad(ctx context.Context, p pool.Pool, load []*bookingDomain.Booking, trigger string) error {
	driverID, err := s.assigner.AssignDriver(ctx, p.DestinationID, p.VehicleClass)
	if err != nil {
		return fmt.Errorf("failed to assign driver: %w", err)
	}
	return s.confirmMembers(ctx, p, load, driverID, trigger)
}

// confirmMembers transitions every member of the load to confirmed with a
// shared driver and per-booking OTPs. Members already confirmed by an
// overlapping evaluation are no-ops; members cancelled underneath us lose
// the race and are skipped.
func (s *PoolService) confirmMembers(ctx context.Context, p pool.Pool, load []*bookingDomain.Booking, driverID uuid.UUID, trigger string) error {
	seats := 0
	for _, m := range load {
		seats += m.PassengerCount()
	}
	fill := float64(seats) / float64(p.Capacity)

	for _, member := range load {
		confirmed, err := s.confirmMember(ctx, member, driverID)
		if err != nil {
			return err
		}
		if !confirmed {
			continue
		}

		s.publishEvent(ctx, events.BookingConfirmed, member.ID().String(), events.BookingConfirmedEvent{
			BookingID:     member.ID(),
			RiderID:       member.RiderID(),
			DriverID:      driverID,
			DestinationID: p.DestinationID,
			VehicleClass:  p.VehicleClass.String(),
			OTP:           member.OTP(),
			Fare:          member.Fare(),
			OccurredAt:    time.Now().UTC(),
		})
		observability.BookingsConfirmed.Inc()
	}

	observability.PoolConfirmations.WithLabelValues(trigger).Inc()
	observability.PoolFillLevel.Observe(fill)

	s.logger.Info("pool confirmed",
		zap.String("destination_id", p.DestinationID),
		zap.String("vehicle_class", p.VehicleClass.String()),
		zap.String("driver_id", driverID.String()),
		zap.String("trigger", trigger),
		zap.Int("members", len(load)),
		zap.Float64("fill_level", fill),
	)
	return nil
}

// confirmMember performs one pending→confirmed transition under optimistic
// locking. Returns false without error when the transition was a no-op.
func (s *PoolService) confirmMember(ctx context.Context, member *bookingDomain.Booking, driverID uuid.UUID) (bool, error) {
	if member.Status() == bookingDomain.StatusConfirmed {
		// Another evaluation already confirmed it; idempotent no-op.
		return false, nil
	}

	otp, err := s.codes.OTP()
	if err != nil {
		return false, err
	}
	if err := member.Confirm(driverID, otp); err != nil {
		var stateErr *domain.InvalidStateError
		if errors.As(err, &stateErr) {
			// Terminal already (cancelled); the member left the pool.
			return false, nil
		}
		return false, err
	}

	member.IncrementVersion()
	if err := s.repo.Update(ctx, member); err != nil {
		var conflictErr *domain.ConflictError
		if !errors.As(err, &conflictErr) {
			return false, err
		}
		// Lost the version race: re-read to distinguish a concurrent
		// confirmation (no-op) from a concurrent cancellation (skip).
		current, ferr := s.repo.FindByID(ctx, member.ID())
		if ferr != nil {
			return false, ferr
		}
		if current.Status() == bookingDomain.StatusConfirmed {
			return false, nil
		}
		s.logger.Warn("pool member changed state during confirmation, skipping",
			zap.String("booking_id", member.ID().String()),
			zap.String("status", current.Status().String()),
		)
		return false, nil
	}
	return true, nil
}

// ListOpenPools returns every destination/class pool that currently has
// pending members, for the rider-facing pool listing.
func (s *PoolService) ListOpenPools(ctx context.Context) ([]PoolDTO, error) {
	var out []PoolDTO
	for _, dest := range s.catalog.All() {
		for _, class := range []catalog.VehicleClass{catalog.ClassSmall, catalog.ClassBig} {
			if _, ok := dest.Tiers[class]; !ok {
				continue
			}
			p, err := s.loadPool(ctx, dest.ID, class)
			if err != nil {
				return nil, err
			}
			if len(p.Members) == 0 {
				continue
			}
			out = append(out, PoolDTO{
				DestinationID:   dest.ID,
				DestinationName: dest.Name,
				VehicleClass:    class.String(),
				Capacity:        p.Capacity,
				SeatsBooked:     p.SeatsBooked(),
				FillLevel:       p.FillLevel(),
				Members:         toBookingDTOs(p.Members),
			})
		}
	}
	return out, nil
}

func (s *PoolService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
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
