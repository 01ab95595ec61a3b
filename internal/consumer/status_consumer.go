package consumer

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/autopool/service-rides/internal/common/kafka"
	"github.com/autopool/service-rides/internal/domain/booking"
	"github.com/autopool/service-rides/internal/events"
	"github.com/autopool/service-rides/internal/statussync"
)

// StatusEventConsumer feeds committed booking transitions into the status
// synchronizer. Each instance consumes with its own group ID so every
// instance sees every event; subscribers connect to whichever instance
// serves their websocket.
type StatusEventConsumer struct {
	consumer *kafka.Consumer
	sync     *statussync.Synchronizer
	logger   *zap.Logger
}

// NewStatusEventConsumer creates a new StatusEventConsumer.
func NewStatusEventConsumer(
	brokers []string,
	groupID string,
	sync *statussync.Synchronizer,
	logger *zap.Logger,
) *StatusEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicBookingEvents, logger)
	return &StatusEventConsumer{
		consumer: consumer,
		sync:     sync,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *StatusEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *StatusEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *StatusEventConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	change, ok := c.toStatusChange(cloudEvent)
	if !ok {
		return nil
	}
	c.sync.Dispatch(change)
	return nil
}

func (c *StatusEventConsumer) toStatusChange(cloudEvent kafka.CloudEvent) (statussync.StatusChange, bool) {
	switch cloudEvent.Type {
	case events.BookingRequested:
		var evt events.BookingRequestedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingRequestedEvent data", zap.Error(err))
			return statussync.StatusChange{}, false
		}
		return statussync.StatusChange{
			BookingID:  evt.BookingID,
			RiderID:    evt.RiderID,
			Status:     booking.StatusPending,
			OccurredAt: evt.OccurredAt,
		}, true
	case events.BookingConfirmed:
		var evt events.BookingConfirmedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingConfirmedEvent data", zap.Error(err))
			return statussync.StatusChange{}, false
		}
		return statussync.StatusChange{
			BookingID:  evt.BookingID,
			RiderID:    evt.RiderID,
			DriverID:   ptr(evt.DriverID),
			Status:     booking.StatusConfirmed,
			OccurredAt: evt.OccurredAt,
		}, true
	case events.BookingCompleted:
		var evt events.BookingCompletedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingCompletedEvent data", zap.Error(err))
			return statussync.StatusChange{}, false
		}
		return statussync.StatusChange{
			BookingID:  evt.BookingID,
			RiderID:    evt.RiderID,
			DriverID:   ptr(evt.DriverID),
			Status:     booking.StatusCompleted,
			OccurredAt: evt.OccurredAt,
		}, true
	case events.BookingCancelled:
		var evt events.BookingCancelledEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse BookingCancelledEvent data", zap.Error(err))
			return statussync.StatusChange{}, false
		}
		return statussync.StatusChange{
			BookingID:  evt.BookingID,
			RiderID:    evt.RiderID,
			Status:     booking.StatusCancelled,
			OccurredAt: evt.OccurredAt,
		}, true
	default:
		return statussync.StatusChange{}, false
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
