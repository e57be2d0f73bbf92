package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"order-sync/internal/models"

	"github.com/jmoiron/sqlx"
)

const inputOrderColumns = `id_input, time_temp, id_pesanan, id_admin, platform, qty, nama_ket, link, deadline,
	id_desainer, id_penjahit, id_qc`

// LockIDPrefix takes a transaction-scoped advisory lock on the month-year
// prefix. It is released when the surrounding transaction ends.
func (q *queries) LockIDPrefix(ctx context.Context, prefix string) error {
	_, err := q.ext.ExecContext(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", "id_input:"+prefix)
	return err
}

// LockOrder takes a transaction-scoped advisory lock on one id_input, so
// writers of the same order queue here instead of meeting on row locks taken
// in different table orders.
func (q *queries) LockOrder(ctx context.Context, idInput string) error {
	_, err := q.ext.ExecContext(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", "order:"+idInput)
	return err
}

// LastIDWithPrefix returns the greatest id_input of the form PREFIX-NNNNN, or "".
func (q *queries) LastIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	var id string
	err := sqlx.GetContext(ctx, q.ext, &id, `
		SELECT id_input FROM table_input_order
		WHERE id_input LIKE $1
		ORDER BY id_input DESC
		LIMIT 1`, prefix+"-_____")
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// InsertInputOrder inserts the canonical order
func (q *queries) InsertInputOrder(ctx context.Context, order *models.InputOrder) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO table_input_order (`+inputOrderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.IDInput, order.TimeTemp, order.IDPesanan, order.IDAdmin, order.Platform,
		order.Qty, order.NamaKet, order.Link, dateArg(order.Deadline),
		order.IDDesainer, order.IDPenjahit, order.IDQC)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, order.IDInput)
	}
	return err
}

// GetInputOrder retrieves a canonical order by id_input
func (q *queries) GetInputOrder(ctx context.Context, idInput string) (*models.InputOrder, error) {
	var order models.InputOrder
	err := sqlx.GetContext(ctx, q.ext, &order,
		"SELECT "+inputOrderColumns+" FROM table_input_order WHERE id_input = $1", idInput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListInputOrders retrieves every canonical order
func (q *queries) ListInputOrders(ctx context.Context) ([]models.InputOrder, error) {
	orders := []models.InputOrder{}
	err := sqlx.SelectContext(ctx, q.ext, &orders,
		"SELECT "+inputOrderColumns+" FROM table_input_order ORDER BY id_input")
	return orders, err
}

// ListInputIDs retrieves every id_input in order
func (q *queries) ListInputIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := sqlx.SelectContext(ctx, q.ext, &ids, "SELECT id_input FROM table_input_order ORDER BY id_input")
	return ids, err
}

// ListInputOrdersByDeadline retrieves the orders due on deadline
func (q *queries) ListInputOrdersByDeadline(ctx context.Context, deadline time.Time) ([]models.InputOrder, error) {
	orders := []models.InputOrder{}
	err := sqlx.SelectContext(ctx, q.ext, &orders,
		"SELECT "+inputOrderColumns+" FROM table_input_order WHERE deadline = $1 ORDER BY id_input",
		dateArg(deadline))
	return orders, err
}

// DeleteOrder deletes the order from every table, projections first
func (q *queries) DeleteOrder(ctx context.Context, idInput string) (bool, error) {
	for _, table := range []string{"table_urgent", "table_prod", "table_design", "table_pesanan"} {
		if _, err := q.ext.ExecContext(ctx, "DELETE FROM "+table+" WHERE id_input = $1", idInput); err != nil {
			return false, fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	res, err := q.ext.ExecContext(ctx, "DELETE FROM table_input_order WHERE id_input = $1", idInput)
	if err != nil {
		return false, fmt.Errorf("failed to delete from table_input_order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
