package service

import (
	"context"
	"errors"
	"fmt"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// ResyncFailure is one order the bulk run could not synchronize.
type ResyncFailure struct {
	IDInput string `json:"id_input"`
	Reason  string `json:"reason"`
}

// ResyncResult reports a bulk resynchronization.
type ResyncResult struct {
	SuccessCount int             `json:"success_count"`
	ErrorCount   int             `json:"error_count"`
	Failures     []ResyncFailure `json:"failures"`
}

// ResyncAll re-runs SyncToAggregate for every canonical order. Each order is
// its own transaction: a failure is recorded and the run moves on, so rows
// synced before it stay committed.
func (e *Engine) ResyncAll(ctx context.Context) (*ResyncResult, error) {
	ctx, span := util.StartSpan(ctx, "Engine.ResyncAll")
	defer span.End()

	listCtx, cancel := e.withTimeout(ctx)
	ids, err := e.repo.Queries().ListInputIDs(listCtx)
	cancel()
	if err != nil {
		return nil, classify("resync_all", fmt.Errorf("failed to list input orders: %w", err))
	}

	result := &ResyncResult{Failures: []ResyncFailure{}}
	for _, id := range ids {
		if ctx.Err() != nil {
			// the caller gave up; the remaining ids are reported, not attempted
			result.ErrorCount++
			result.Failures = append(result.Failures, ResyncFailure{IDInput: id, Reason: ctx.Err().Error()})
			continue
		}

		if err := e.SyncToAggregate(ctx, id); err != nil {
			result.ErrorCount++
			result.Failures = append(result.Failures, ResyncFailure{IDInput: id, Reason: publicReason(err)})
			util.ResyncRowsTotal.WithLabelValues("error").Inc()
			e.logger.Warn("Resync failed for order", zap.String("id_input", id), zap.Error(err))
			continue
		}
		result.SuccessCount++
		util.ResyncRowsTotal.WithLabelValues("success").Inc()
	}

	e.logger.Info("Resync completed",
		zap.Int("success_count", result.SuccessCount),
		zap.Int("error_count", result.ErrorCount))

	e.publish("resync_all", func(ctx context.Context, n Notifier) error {
		return n.PublishResyncCompleted(ctx, &models.ResyncCompletedEvent{
			BaseEvent:    newBaseEvent(models.EventTypeResyncCompleted, e.now()),
			SuccessCount: result.SuccessCount,
			ErrorCount:   result.ErrorCount,
		})
	})

	return result, nil
}

// publicReason is err's message without driver detail.
func publicReason(err error) string {
	var de *DatabaseError
	if errors.As(err, &de) {
		return de.PublicMessage()
	}
	return err.Error()
}
