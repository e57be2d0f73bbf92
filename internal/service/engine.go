package service

import (
	"context"
	"errors"
	"time"

	"order-sync/internal/models"
	"order-sync/internal/util"

	"go.uber.org/zap"
)

// Queries is the statement surface of one connection or transaction.
// Lookups return (nil, nil) when the row does not exist.
type Queries interface {
	LockIDPrefix(ctx context.Context, prefix string) error
	// LockOrder serializes writers of one order until the transaction ends.
	// Every transaction that writes an existing order takes it before any row lock.
	LockOrder(ctx context.Context, idInput string) error
	LastIDWithPrefix(ctx context.Context, prefix string) (string, error)

	InsertInputOrder(ctx context.Context, order *models.InputOrder) error
	GetInputOrder(ctx context.Context, idInput string) (*models.InputOrder, error)
	ListInputOrders(ctx context.Context) ([]models.InputOrder, error)
	ListInputIDs(ctx context.Context) ([]string, error)
	ListInputOrdersByDeadline(ctx context.Context, deadline time.Time) ([]models.InputOrder, error)

	UpsertPesanan(ctx context.Context, order *models.InputOrder, now time.Time) error
	UpsertDesign(ctx context.Context, order *models.InputOrder) error
	UpsertProduction(ctx context.Context, order *models.InputOrder) error
	UpsertUrgent(ctx context.Context, order *models.InputOrder) error
	DeleteUrgentBefore(ctx context.Context, day time.Time) (int64, error)

	// UpdateColumn writes one stored column; false means no row matched.
	UpdateColumn(ctx context.Context, col models.Column, idInput string, value any) (bool, error)
	// PropagateStages copies stage fields into table_pesanan and table_urgent;
	// false means table_pesanan has no row for idInput.
	PropagateStages(ctx context.Context, idInput string, now time.Time) (bool, error)
	// DeleteOrder removes every row for idInput; false means no canonical row existed.
	DeleteOrder(ctx context.Context, idInput string) (bool, error)

	GetPesanan(ctx context.Context, idInput string) (*models.Pesanan, error)
	ListPesanan(ctx context.Context) ([]models.Pesanan, error)
	GetDesign(ctx context.Context, idInput string) (*models.Design, error)
	GetProduction(ctx context.Context, idInput string) (*models.Production, error)
	GetUrgent(ctx context.Context, idInput string) (*models.Urgent, error)
	ListUrgent(ctx context.Context, day time.Time) ([]models.Urgent, error)
}

// Repository hands out Queries, either on the pool or inside a transaction.
type Repository interface {
	// InTx runs fn in one transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(q Queries) error) error
	Queries() Queries
}

// Notifier pushes committed changes to stage UIs and other listeners.
// Publishing is best effort; failures are logged, never returned to callers.
type Notifier interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderSynced(ctx context.Context, event *models.OrderSyncedEvent) error
	PublishColumnUpdated(ctx context.Context, event *models.ColumnUpdatedEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
	PublishUrgentPromoted(ctx context.Context, event *models.UrgentPromotedEvent) error
	PublishResyncCompleted(ctx context.Context, event *models.ResyncCompletedEvent) error
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	// Timeout bounds every operation's database work.
	Timeout time.Duration
	// Location decides which calendar day "today" and the id_input month are.
	Location *time.Location
	// PruneStaleUrgent deletes urgent rows whose deadline has passed during promotion.
	PruneStaleUrgent bool
	Clock            func() time.Time
}

// Engine keeps the canonical order and its projections consistent.
type Engine struct {
	repo             Repository
	notifier         Notifier
	logger           *zap.Logger
	now              func() time.Time
	loc              *time.Location
	timeout          time.Duration
	pruneStaleUrgent bool
}

// NewEngine creates a new synchronization engine
func NewEngine(repo Repository, notifier Notifier, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = util.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		repo:             repo,
		notifier:         notifier,
		logger:           logger,
		now:              opts.Clock,
		loc:              opts.Location,
		timeout:          opts.Timeout,
		pruneStaleUrgent: opts.PruneStaleUrgent,
	}
}

// Today returns the current calendar day at midnight UTC, the form deadlines are stored in.
func (e *Engine) Today() time.Time {
	return truncateDay(e.now().In(e.loc))
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) inTx(ctx context.Context, op string, fn func(q Queries) error) error {
	start := time.Now()
	err := e.repo.InTx(ctx, fn)
	util.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		err = classify(op, err)
		util.OperationErrorsTotal.WithLabelValues(op, errorKind(err)).Inc()
	}
	return err
}

func (e *Engine) publish(op string, fn func(ctx context.Context, n Notifier) error) {
	if e.notifier == nil {
		return
	}
	// The request context may already be done; publishing must outlive it.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx, e.notifier); err != nil {
		e.logger.Error("Failed to publish sync event", zap.String("op", op), zap.Error(err))
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func errorKind(err error) string {
	var (
		ve *ValidationError
		ne *NotFoundError
		ge *GenerationError
		pe *InProgressError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ne):
		return "not_found"
	case errors.As(err, &ge):
		return "generation"
	case errors.As(err, &pe):
		return "in_progress"
	}
	return "database"
}
