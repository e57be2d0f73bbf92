package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func orderKey(idInput string) string {
	return fmt.Sprintf("order-%s", idInput)
}

// EventPublisher publishes committed sync changes
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.IDInput), event)
}

// PublishOrderSynced publishes OrderSynced event
func (ep *EventPublisher) PublishOrderSynced(ctx context.Context, event *models.OrderSyncedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.IDInput), event)
}

// PublishColumnUpdated publishes ColumnUpdated event
func (ep *EventPublisher) PublishColumnUpdated(ctx context.Context, event *models.ColumnUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.IDInput), event)
}

// PublishOrderDeleted publishes OrderDeleted event
func (ep *EventPublisher) PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.IDInput), event)
}

// PublishUrgentPromoted publishes UrgentPromoted event, keyed by day
func (ep *EventPublisher) PublishUrgentPromoted(ctx context.Context, event *models.UrgentPromotedEvent) error {
	return ep.producer.PublishEvent(ctx, "urgent-"+event.Date, event)
}

// PublishResyncCompleted publishes ResyncCompleted event
func (ep *EventPublisher) PublishResyncCompleted(ctx context.Context, event *models.ResyncCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "resync", event)
}

// SyncRequester asks the sync worker to resynchronize an order
type SyncRequester struct {
	producer *Producer
}

// NewSyncRequester creates a publisher for the sync-requests topic
func NewSyncRequester(producer *Producer) *SyncRequester {
	return &SyncRequester{producer: producer}
}

// RequestSync publishes SyncRequested event
func (sr *SyncRequester) RequestSync(ctx context.Context, idInput, reason string) error {
	event := &models.SyncRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSyncRequested,
			Timestamp: time.Now(),
		},
		IDInput: idInput,
		Reason:  reason,
	}
	return sr.producer.PublishEvent(ctx, orderKey(idInput), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSyncRequested func(context.Context, *models.SyncRequestedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSyncRequested registers a handler for SyncRequested events
func (eh *EventHandler) OnSyncRequested(handler func(context.Context, *models.SyncRequestedEvent) error) {
	eh.onSyncRequested = handler
}

// HandleMessage routes messages to appropriate handlers. Undecodable messages
// fail permanently and are not retried.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to unmarshal base event: %w", err))
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSyncRequested:
		if eh.onSyncRequested != nil {
			var event models.SyncRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to unmarshal SyncRequested event: %w", err))
			}
			return eh.onSyncRequested(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
