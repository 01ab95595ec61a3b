// Package consumer holds the Kafka consumers that react to booking events:
// pool re-evaluation and status fan-out.
package consumer

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/application"
	"github.com/autopool/service-rides/internal/common/kafka"
	"github.com/autopool/service-rides/internal/domain/catalog"
	"github.com/autopool/service-rides/internal/events"
)

// PoolEventConsumer re-evaluates a destination's pool whenever its pending
// set changes. Requested and cancelled events change the pending set;
// confirmed and completed do not (confirmation already removed the members).
type PoolEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.PoolService
	logger   *zap.Logger
}

// NewPoolEventConsumer creates a new PoolEventConsumer.
func NewPoolEventConsumer(
	brokers []string,
	groupID string,
	service *application.PoolService,
	logger *zap.Logger,
) *PoolEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicBookingEvents, logger)
	return &PoolEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *PoolEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PoolEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PoolEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.BookingRequested:
		var evt events.BookingRequestedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingRequestedEvent data", zap.Error(err))
			return nil
		}
		return c.evaluate(ctx, evt.DestinationID, evt.VehicleClass)
	case events.BookingCancelled:
		var evt events.BookingCancelledEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingCancelledEvent data", zap.Error(err))
			return nil
		}
		return c.evaluate(ctx, evt.DestinationID, evt.VehicleClass)
	default:
		return nil
	}
}

func (c *PoolEventConsumer) evaluate(ctx context.Context, destinationID, vehicleClass string) error {
	class, err := catalog.ParseVehicleClass(vehicleClass)
	if err != nil {
		c.logger.Error("booking event carried unknown vehicle class",
			zap.String("vehicle_class", vehicleClass),
		)
		return nil
	}

	if err := c.service.EvaluateDestination(ctx, destinationID, class); err != nil {
		c.logger.Error("failed to evaluate pool",
			zap.String("destination_id", destinationID),
			zap.String("vehicle_class", vehicleClass),
			zap.Error(err),
		)
		return err
	}
	return nil
}
