package service

import (
	"context"
	"fmt"
	"strings"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// DeleteOrder removes the canonical order and every projection of it in one transaction.
func (e *Engine) DeleteOrder(ctx context.Context, idInput string) error {
	ctx, span := util.StartSpan(ctx, "Engine.DeleteOrder", util.IDInputAttr(idInput))
	defer span.End()

	idInput = strings.TrimSpace(idInput)
	if idInput == "" {
		return &ValidationError{Field: "id_input", Reason: "is required"}
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	err := e.inTx(ctx, "delete_order", func(q Queries) error {
		if err := q.LockOrder(ctx, idInput); err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		found, err := q.DeleteOrder(ctx, idInput)
		if err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		if !found {
			return &NotFoundError{Table: "table_input_order", IDInput: idInput}
		}
		return nil
	})
	if err != nil {
		return err
	}

	util.OrdersDeletedTotal.Inc()
	e.logger.Info("Order deleted", zap.String("id_input", idInput))

	e.publish("delete_order", func(ctx context.Context, n Notifier) error {
		return n.PublishOrderDeleted(ctx, &models.OrderDeletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderDeleted, e.now()),
			IDInput:   idInput,
		})
	})
	return nil
}

// GetOrder returns the canonical order with every projection that exists for it.
func (e *Engine) GetOrder(ctx context.Context, idInput string) (*models.OrderView, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	q := e.repo.Queries()
	input, err := q.GetInputOrder(ctx, idInput)
	if err != nil {
		return nil, classify("get_order", err)
	}
	if input == nil {
		return nil, &NotFoundError{Table: "table_input_order", IDInput: idInput}
	}

	view := &models.OrderView{Input: input}
	if view.Pesanan, err = q.GetPesanan(ctx, idInput); err != nil {
		return nil, classify("get_order", err)
	}
	if view.Design, err = q.GetDesign(ctx, idInput); err != nil {
		return nil, classify("get_order", err)
	}
	if view.Production, err = q.GetProduction(ctx, idInput); err != nil {
		return nil, classify("get_order", err)
	}
	if view.Urgent, err = q.GetUrgent(ctx, idInput); err != nil {
		return nil, classify("get_order", err)
	}
	return view, nil
}

// ListOrders returns every table_pesanan row.
func (e *Engine) ListOrders(ctx context.Context) ([]models.Pesanan, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rows, err := e.repo.Queries().ListPesanan(ctx)
	if err != nil {
		return nil, classify("list_orders", err)
	}
	return rows, nil
}

// ListInputOrders returns every canonical order.
func (e *Engine) ListInputOrders(ctx context.Context) ([]models.InputOrder, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	rows, err := e.repo.Queries().ListInputOrders(ctx)
	if err != nil {
		return nil, classify("list_input_orders", err)
	}
	return rows, nil
}

// GetReferenceLink returns the reference photo link captured at intake.
func (e *Engine) GetReferenceLink(ctx context.Context, idInput string) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	input, err := e.repo.Queries().GetInputOrder(ctx, idInput)
	if err != nil {
		return "", classify("get_link", err)
	}
	if input == nil {
		return "", &NotFoundError{Table: "table_input_order", IDInput: idInput}
	}
	return input.Link, nil
}

// References returns the staff directory used to fill assignment columns.
func (e *Engine) References() map[string][]models.StaffMember {
	return models.References
}
