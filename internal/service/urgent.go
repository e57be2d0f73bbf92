package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// PromoteResult reports one promotion run.
type PromoteResult struct {
	Date          string   `json:"date"`
	PromotedCount int      `json:"promoted_count"`
	IDs           []string `json:"ids"`
	Pruned        int64    `json:"pruned,omitempty"`
}

// PromoteDueToday upserts every order whose deadline is today into
// table_urgent. Re-running it on the same day rewrites the same rows, so the
// count always equals the number of orders due.
func (e *Engine) PromoteDueToday(ctx context.Context, today time.Time) (*PromoteResult, error) {
	ctx, span := util.StartSpan(ctx, "Engine.PromoteDueToday")
	defer span.End()

	day := truncateDay(today)
	result := &PromoteResult{Date: day.Format(models.DateLayout), IDs: []string{}}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.inTx(ctx, "promote_urgent", func(q Queries) error {
		orders, err := q.ListInputOrdersByDeadline(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to list orders due %s: %w", result.Date, err)
		}
		sort.Slice(orders, func(i, j int) bool { return orders[i].IDInput < orders[j].IDInput })
		for i := range orders {
			if err := q.LockOrder(ctx, orders[i].IDInput); err != nil {
				return fmt.Errorf("failed to lock order %s: %w", orders[i].IDInput, err)
			}
			if err := q.UpsertUrgent(ctx, &orders[i]); err != nil {
				return fmt.Errorf("failed to upsert urgent %s: %w", orders[i].IDInput, err)
			}
			result.IDs = append(result.IDs, orders[i].IDInput)
		}
		if e.pruneStaleUrgent {
			pruned, err := q.DeleteUrgentBefore(ctx, day)
			if err != nil {
				return fmt.Errorf("failed to prune stale urgent rows: %w", err)
			}
			result.Pruned = pruned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.PromotedCount = len(result.IDs)
	util.UrgentPromotedTotal.Add(float64(result.PromotedCount))

	if result.PromotedCount == 0 {
		e.logger.Info("No orders due", zap.String("date", result.Date))
	} else {
		e.logger.Info("Orders promoted to urgent",
			zap.String("date", result.Date),
			zap.Int("count", result.PromotedCount),
			zap.Int64("pruned", result.Pruned))
	}

	e.publish("promote_urgent", func(ctx context.Context, n Notifier) error {
		return n.PublishUrgentPromoted(ctx, &models.UrgentPromotedEvent{
			BaseEvent:     newBaseEvent(models.EventTypeUrgentPromoted, e.now()),
			Date:          result.Date,
			PromotedCount: result.PromotedCount,
			IDs:           result.IDs,
		})
	})

	return result, nil
}

// ListUrgent returns the urgent rows still relevant on day.
func (e *Engine) ListUrgent(ctx context.Context, day time.Time) ([]models.Urgent, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rows, err := e.repo.Queries().ListUrgent(ctx, truncateDay(day))
	if err != nil {
		return nil, classify("list_urgent", err)
	}
	return rows, nil
}
