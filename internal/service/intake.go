package service

import (
	"context"
	"fmt"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyStore remembers which id_input a client request key produced.
type IdempotencyStore interface {
	// ReserveOrder claims key atomically. When reserved is false another
	// request owns the key: idInput is the order it created, or empty while
	// that request is still running.
	ReserveOrder(ctx context.Context, key string) (idInput string, reserved bool, err error)
	RememberOrder(ctx context.Context, key, idInput string) error
	// ForgetOrder releases key while it still names idInput; "" names the
	// caller's own reservation.
	ForgetOrder(ctx context.Context, key, idInput string) error
}

// CreateOrder validates the intake form, mints an id_input and fans the new
// order out into every projection in one transaction.
func (e *Engine) CreateOrder(ctx context.Context, fields map[string]any) (*models.InputOrder, error) {
	ctx, span := util.StartSpan(ctx, "Engine.CreateOrder")
	defer span.End()

	order, err := parseIntake(fields)
	if err != nil {
		util.OperationErrorsTotal.WithLabelValues("create_order", "validation").Inc()
		return nil, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	now := e.now()
	order.TimeTemp = now

	err = e.inTx(ctx, "create_order", func(q Queries) error {
		id, err := e.NextID(ctx, q, MonthYear(now.In(e.loc)))
		if err != nil {
			return err
		}
		order.IDInput = id

		if err := q.LockOrder(ctx, id); err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}
		if err := q.InsertInputOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert input order: %w", err)
		}
		if err := e.fanOut(ctx, q, id, now); err != nil {
			return err
		}
		return e.propagate(ctx, q, id, now)
	})
	if err != nil {
		e.logger.Warn("Order intake failed", zap.String("id_pesanan", order.IDPesanan), zap.Error(err))
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	e.logger.Info("Order created",
		zap.String("id_input", order.IDInput),
		zap.String("id_pesanan", order.IDPesanan))

	e.publish("create_order", func(ctx context.Context, n Notifier) error {
		return n.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCreated, now),
			IDInput:   order.IDInput,
			IDPesanan: order.IDPesanan,
			Deadline:  order.Deadline.Format(models.DateLayout),
		})
	})

	return order, nil
}

// CreateOrderOnce is CreateOrder guarded by a client-supplied request key:
// a repeated key returns the order the first request created, and a key whose
// first request is still running is refused with an InProgressError.
func (e *Engine) CreateOrderOnce(ctx context.Context, idem IdempotencyStore, key string, fields map[string]any) (*models.InputOrder, bool, error) {
	if idem == nil || key == "" {
		order, err := e.CreateOrder(ctx, fields)
		return order, false, err
	}

	reserved := false
	for attempt := 0; attempt < 2 && !reserved; attempt++ {
		idInput, ok, err := idem.ReserveOrder(ctx, key)
		if err != nil {
			e.logger.Warn("Idempotency reservation failed, creating order anyway", zap.Error(err))
			order, err := e.CreateOrder(ctx, fields)
			return order, false, err
		}
		if ok {
			reserved = true
			break
		}
		if idInput == "" {
			return nil, false, &InProgressError{Key: key}
		}

		existing, err := e.repo.Queries().GetInputOrder(ctx, idInput)
		if err != nil {
			return nil, false, classify("create_order", err)
		}
		if existing != nil {
			e.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", key),
				zap.String("id_input", idInput))
			return existing, true, nil
		}

		// the order behind the key is gone; release the key and claim it again
		if err := idem.ForgetOrder(ctx, key, idInput); err != nil {
			return nil, false, classify("create_order", err)
		}
	}
	if !reserved {
		return nil, false, &InProgressError{Key: key}
	}

	order, err := e.CreateOrder(ctx, fields)
	if err != nil {
		if ferr := idem.ForgetOrder(ctx, key, ""); ferr != nil {
			e.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(ferr))
		}
		return nil, false, err
	}
	if err := idem.RememberOrder(ctx, key, order.IDInput); err != nil {
		e.logger.Warn("Failed to remember idempotency key", zap.String("id_input", order.IDInput), zap.Error(err))
	}
	return order, false, nil
}

func newBaseEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}
