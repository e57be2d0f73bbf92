package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// SyncToAggregate re-projects the canonical order into table_pesanan,
// table_design and table_prod, then re-runs propagation so every shared
// status agrees again. Running it twice without a canonical change leaves
// table_pesanan untouched the second time.
func (e *Engine) SyncToAggregate(ctx context.Context, idInput string) error {
	ctx, span := util.StartSpan(ctx, "Engine.SyncToAggregate", util.IDInputAttr(idInput))
	defer span.End()

	idInput = strings.TrimSpace(idInput)
	if idInput == "" {
		return &ValidationError{Field: "id_input", Reason: "is required"}
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	now := e.now()
	err := e.inTx(ctx, "sync", func(q Queries) error {
		if err := q.LockOrder(ctx, idInput); err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if err := e.fanOut(ctx, q, idInput, now); err != nil {
			return err
		}
		return e.propagate(ctx, q, idInput, now)
	})
	if err != nil {
		return err
	}

	util.SyncsTotal.Inc()
	e.logger.Debug("Order synced", zap.String("id_input", idInput))
	return nil
}

// fanOut upserts the three intake projections from the canonical row.
func (e *Engine) fanOut(ctx context.Context, q Queries, idInput string, now time.Time) error {
	order, err := q.GetInputOrder(ctx, idInput)
	if err != nil {
		return fmt.Errorf("failed to read input order: %w", err)
	}
	if order == nil {
		return &NotFoundError{Table: "table_input_order", IDInput: idInput}
	}

	if err := q.UpsertPesanan(ctx, order, now); err != nil {
		return fmt.Errorf("failed to upsert table_pesanan: %w", err)
	}
	if err := q.UpsertDesign(ctx, order); err != nil {
		return fmt.Errorf("failed to upsert table_design: %w", err)
	}
	if err := q.UpsertProduction(ctx, order); err != nil {
		return fmt.Errorf("failed to upsert table_prod: %w", err)
	}
	return nil
}

// RequestSync re-synchronizes one order on behalf of an out-of-band edit and
// announces it.
func (e *Engine) RequestSync(ctx context.Context, idInput, reason string) error {
	if err := e.SyncToAggregate(ctx, idInput); err != nil {
		return err
	}
	e.logger.Info("Order resynchronized on request",
		zap.String("id_input", idInput),
		zap.String("reason", reason))
	e.publish("sync", func(ctx context.Context, n Notifier) error {
		return n.PublishOrderSynced(ctx, &models.OrderSyncedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderSynced, e.now()),
			IDInput:   idInput,
		})
	})
	return nil
}
