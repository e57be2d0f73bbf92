package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// UpdateColumn writes one allow-listed column. It is UpdateColumns with a
// single entry.
func (e *Engine) UpdateColumn(ctx context.Context, table models.Table, idInput, column string, value any) error {
	return e.UpdateColumns(ctx, table, idInput, map[string]any{column: value})
}

type columnWrite struct {
	col   models.Column
	value any
}

// UpdateColumns writes several allow-listed columns of one table in a single
// transaction followed by one propagation. Every column is checked against
// the allow-list, and every value coerced, before anything touches the
// database. Aggregate columns are written to the stage or canonical column
// they are projected from, so the edit reaches every projection.
func (e *Engine) UpdateColumns(ctx context.Context, table models.Table, idInput string, values map[string]any) error {
	ctx, span := util.StartSpan(ctx, "Engine.UpdateColumns", util.IDInputAttr(idInput))
	defer span.End()

	writes, err := resolveWrites(table, values)
	if err != nil {
		util.OperationErrorsTotal.WithLabelValues("update_column", "validation").Inc()
		return err
	}

	idInput = strings.TrimSpace(idInput)
	if idInput == "" {
		return &ValidationError{Field: "id_input", Reason: "is required"}
	}

	refan, propagates := false, false
	for _, w := range writes {
		owner := w.col.Owner()
		refan = refan || owner.Table == models.TableInput
		propagates = propagates || owner.Propagates || owner.Table == models.TableInput
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	now := e.now()
	err = e.inTx(ctx, "update_column", func(q Queries) error {
		if err := q.LockOrder(ctx, idInput); err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		for _, w := range writes {
			owner := w.col.Owner()
			found, err := q.UpdateColumn(ctx, owner, idInput, w.value)
			if err != nil {
				return fmt.Errorf("failed to update %s.%s: %w", owner.Table.SQLName(), owner.Name, err)
			}
			if !found {
				return &NotFoundError{Table: owner.Table.SQLName(), IDInput: idInput}
			}
		}
		if refan {
			if err := e.fanOut(ctx, q, idInput, now); err != nil {
				return err
			}
		}
		if !propagates {
			return nil
		}
		return e.propagate(ctx, q, idInput, now)
	})
	if err != nil {
		return err
	}

	names := make([]string, len(writes))
	for i, w := range writes {
		names[i] = w.col.Name
		util.ColumnUpdatesTotal.WithLabelValues(string(w.col.Table), w.col.Name).Inc()
	}
	e.logger.Info("Columns updated",
		zap.String("id_input", idInput),
		zap.String("table", table.SQLName()),
		zap.Strings("columns", names),
		zap.Bool("propagated", propagates))

	e.publish("update_column", func(ctx context.Context, n Notifier) error {
		return n.PublishColumnUpdated(ctx, &models.ColumnUpdatedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeColumnUpdated, now),
			IDInput:    idInput,
			Table:      table.SQLName(),
			Columns:    names,
			Propagated: propagates,
		})
	})
	return nil
}

// resolveWrites validates and coerces every entry, in column-name order.
func resolveWrites(table models.Table, values map[string]any) ([]columnWrite, error) {
	if table.SQLName() == "" || table == models.TableInput {
		return nil, &ValidationError{Field: "table", Reason: fmt.Sprintf("unknown table %q", table)}
	}
	if len(values) == 0 {
		return nil, &ValidationError{Field: "column", Reason: "no columns to update"}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	writes := make([]columnWrite, 0, len(names))
	seen := make(map[models.Column]string, len(names))
	for _, name := range names {
		col, ok := models.LookupColumn(table, name)
		if !ok {
			return nil, &ValidationError{Field: "column", Reason: fmt.Sprintf("column %q is not writable on %s", name, table.SQLName())}
		}
		if prev, dup := seen[col]; dup {
			return nil, &ValidationError{Field: "column", Reason: fmt.Sprintf("%q and %q name the same column", prev, name)}
		}
		seen[col] = name

		v, err := coerceColumnValue(col, values[name])
		if err != nil {
			return nil, err
		}
		writes = append(writes, columnWrite{col: col, value: v})
	}
	return writes, nil
}
