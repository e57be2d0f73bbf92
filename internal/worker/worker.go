package worker

import (
	"context"
	"errors"

	"order-sync/internal/broker"
	"order-sync/internal/models"
	"order-sync/internal/service"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// Syncer re-runs fan-out and propagation for one order
type Syncer interface {
	RequestSync(ctx context.Context, idInput, reason string) error
}

// SyncWorker consumes sync requests published by stage tools
type SyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	syncer       Syncer
	logger       *zap.Logger
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(consumer *broker.Consumer, syncer Syncer) *SyncWorker {
	w := &SyncWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		syncer:       syncer,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnSyncRequested(w.handleSyncRequested)
	return w
}

// handleSyncRequested syncs the order. Requests that can never succeed are
// logged and acknowledged; anything else is returned so the consumer retries
// it and finally dead-letters it.
func (w *SyncWorker) handleSyncRequested(ctx context.Context, event *models.SyncRequestedEvent) error {
	err := w.syncer.RequestSync(ctx, event.IDInput, event.Reason)
	if err == nil {
		return nil
	}

	var (
		ve *service.ValidationError
		ne *service.NotFoundError
	)
	if errors.As(err, &ve) || errors.As(err, &ne) {
		w.logger.Warn("Dropping sync request",
			zap.String("event_id", event.EventID),
			zap.String("id_input", event.IDInput),
			zap.Error(err))
		return nil
	}
	return err
}

// Start starts the worker
func (w *SyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SyncWorker) Stop() error {
	w.logger.Info("Stopping sync worker...")
	return w.consumer.Close()
}
