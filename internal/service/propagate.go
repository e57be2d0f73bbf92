package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-sync/internal/util"
)

// Propagate copies designer, layout link and print status from table_design,
// and tailor, QC and production status from table_prod, into table_pesanan.
// Print and production status also reach table_prod and table_urgent.
// First-assigned timestamps are only ever filled, never overwritten.
func (e *Engine) Propagate(ctx context.Context, idInput string) error {
	ctx, span := util.StartSpan(ctx, "Engine.Propagate", util.IDInputAttr(idInput))
	defer span.End()

	idInput = strings.TrimSpace(idInput)
	if idInput == "" {
		return &ValidationError{Field: "id_input", Reason: "is required"}
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	now := e.now()
	return e.inTx(ctx, "propagate", func(q Queries) error {
		if err := q.LockOrder(ctx, idInput); err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		return e.propagate(ctx, q, idInput, now)
	})
}

func (e *Engine) propagate(ctx context.Context, q Queries, idInput string, now time.Time) error {
	found, err := q.PropagateStages(ctx, idInput, now)
	if err != nil {
		return fmt.Errorf("failed to propagate stage fields: %w", err)
	}
	if !found {
		return &NotFoundError{Table: "table_pesanan", IDInput: idInput}
	}
	util.PropagationsTotal.Inc()
	return nil
}
