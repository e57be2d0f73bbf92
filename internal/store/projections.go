package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"order-sync/internal/models"

	"github.com/jmoiron/sqlx"
)

// UpsertPesanan projects the canonical fields into table_pesanan. Stage-owned
// columns are left alone on update, and last_synced_at only moves when a
// copied field actually changed.
func (q *queries) UpsertPesanan(ctx context.Context, order *models.InputOrder, now time.Time) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO table_pesanan (
			id_input, time_temp, id_pesanan, id_admin, platform, qty, nama_ket, link, deadline,
			print_status, status_produksi, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id_input) DO UPDATE SET
			time_temp = EXCLUDED.time_temp,
			id_pesanan = EXCLUDED.id_pesanan,
			id_admin = EXCLUDED.id_admin,
			platform = EXCLUDED.platform,
			qty = EXCLUDED.qty,
			nama_ket = EXCLUDED.nama_ket,
			link = EXCLUDED.link,
			deadline = EXCLUDED.deadline,
			last_synced_at = EXCLUDED.last_synced_at
		WHERE (table_pesanan.time_temp, table_pesanan.id_pesanan, table_pesanan.id_admin,
			table_pesanan.platform, table_pesanan.qty, table_pesanan.nama_ket,
			table_pesanan.link, table_pesanan.deadline)
		IS DISTINCT FROM (EXCLUDED.time_temp, EXCLUDED.id_pesanan, EXCLUDED.id_admin,
			EXCLUDED.platform, EXCLUDED.qty, EXCLUDED.nama_ket,
			EXCLUDED.link, EXCLUDED.deadline)`,
		order.IDInput, order.TimeTemp, order.IDPesanan, order.IDAdmin, order.Platform,
		order.Qty, order.NamaKet, order.Link, dateArg(order.Deadline),
		models.PrintStatusPending, models.ProductionStatusEditing, now)
	return err
}

// UpsertDesign projects into table_design. Assignment and status are seeded
// from intake on insert and owned by the design stage afterwards.
func (q *queries) UpsertDesign(ctx context.Context, order *models.InputOrder) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO table_design (
			id_input, id_desainer, layout_link, status_print, platform, qty, deadline, time_temp
		) VALUES ($1, $2, '', $3, $4, $5, $6, $7)
		ON CONFLICT (id_input) DO UPDATE SET
			platform = EXCLUDED.platform,
			qty = EXCLUDED.qty,
			deadline = EXCLUDED.deadline,
			time_temp = EXCLUDED.time_temp`,
		order.IDInput, order.IDDesainer, models.PrintStatusPending,
		order.Platform, order.Qty, dateArg(order.Deadline), order.TimeTemp)
	return err
}

// UpsertProduction projects into table_prod with the same seeding rule as design.
func (q *queries) UpsertProduction(ctx context.Context, order *models.InputOrder) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO table_prod (
			id_input, id_penjahit, id_qc, status_print, status_produksi, platform, qty, deadline, time_temp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id_input) DO UPDATE SET
			platform = EXCLUDED.platform,
			qty = EXCLUDED.qty,
			deadline = EXCLUDED.deadline,
			time_temp = EXCLUDED.time_temp`,
		order.IDInput, order.IDPenjahit, order.IDQC,
		models.PrintStatusPending, models.ProductionStatusEditing,
		order.Platform, order.Qty, dateArg(order.Deadline), order.TimeTemp)
	return err
}

// UpsertUrgent writes the urgent row with the current stage statuses.
func (q *queries) UpsertUrgent(ctx context.Context, order *models.InputOrder) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO table_urgent (id_input, platform, qty, deadline, status_print, status_produksi)
		SELECT $1::text, $2::text, $3::int, $4::date,
			COALESCE(d.status_print, $5::text), COALESCE(p.status_produksi, $6::text)
		FROM (SELECT 1) AS one
		LEFT JOIN table_design d ON d.id_input = $1::text
		LEFT JOIN table_prod p ON p.id_input = $1::text
		ON CONFLICT (id_input) DO UPDATE SET
			platform = EXCLUDED.platform,
			qty = EXCLUDED.qty,
			deadline = EXCLUDED.deadline,
			status_print = EXCLUDED.status_print,
			status_produksi = EXCLUDED.status_produksi`,
		order.IDInput, order.Platform, order.Qty, dateArg(order.Deadline),
		models.PrintStatusPending, models.ProductionStatusEditing)
	return err
}

// DeleteUrgentBefore removes urgent rows whose deadline is before day.
func (q *queries) DeleteUrgentBefore(ctx context.Context, day time.Time) (int64, error) {
	res, err := q.ext.ExecContext(ctx, "DELETE FROM table_urgent WHERE deadline < $1", dateArg(day))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var propagateStatements = []struct {
	name   string
	stamps bool // also takes now as $2
	query  string
}{
	{"design to pesanan", true, `
		UPDATE table_pesanan p SET
			id_desainer = d.id_desainer,
			layout_link = d.layout_link,
			print_status = d.status_print,
			desainer_assigned_at = CASE WHEN d.id_desainer IS NULL THEN p.desainer_assigned_at
				ELSE COALESCE(p.desainer_assigned_at, $2) END
		FROM table_design d
		WHERE d.id_input = p.id_input AND p.id_input = $1`},
	{"production to pesanan", true, `
		UPDATE table_pesanan p SET
			id_penjahit = pr.id_penjahit,
			id_qc = pr.id_qc,
			status_produksi = pr.status_produksi,
			penjahit_assigned_at = CASE WHEN pr.id_penjahit IS NULL THEN p.penjahit_assigned_at
				ELSE COALESCE(p.penjahit_assigned_at, $2) END,
			qc_assigned_at = CASE WHEN pr.id_qc IS NULL THEN p.qc_assigned_at
				ELSE COALESCE(p.qc_assigned_at, $2) END
		FROM table_prod pr
		WHERE pr.id_input = p.id_input AND p.id_input = $1`},
	{"design to production", false, `
		UPDATE table_prod pr SET status_print = d.status_print
		FROM table_design d
		WHERE d.id_input = pr.id_input AND pr.id_input = $1`},
	{"design to urgent", false, `
		UPDATE table_urgent u SET status_print = d.status_print
		FROM table_design d
		WHERE d.id_input = u.id_input AND u.id_input = $1`},
	{"production to urgent", false, `
		UPDATE table_urgent u SET status_produksi = pr.status_produksi
		FROM table_prod pr
		WHERE pr.id_input = u.id_input AND u.id_input = $1`},
}

// PropagateStages copies stage-owned fields across the projections. The
// pesanan row is locked first so concurrent propagations serialize.
func (q *queries) PropagateStages(ctx context.Context, idInput string, now time.Time) (bool, error) {
	var locked string
	err := sqlx.GetContext(ctx, q.ext, &locked,
		"SELECT id_input FROM table_pesanan WHERE id_input = $1 FOR UPDATE", idInput)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, stmt := range propagateStatements {
		args := []any{idInput}
		if stmt.stamps {
			args = append(args, now)
		}
		if _, err := q.ext.ExecContext(ctx, stmt.query, args...); err != nil {
			return false, fmt.Errorf("failed to propagate %s: %w", stmt.name, err)
		}
	}
	return true, nil
}

const pesananColumns = `id_input, time_temp, id_pesanan, id_admin, platform, qty, nama_ket, link, deadline,
	id_desainer, id_penjahit, id_qc, layout_link, print_status, status_produksi,
	desainer_assigned_at, penjahit_assigned_at, qc_assigned_at, last_synced_at`

// GetPesanan retrieves the aggregate row
func (q *queries) GetPesanan(ctx context.Context, idInput string) (*models.Pesanan, error) {
	var row models.Pesanan
	err := sqlx.GetContext(ctx, q.ext, &row,
		"SELECT "+pesananColumns+" FROM table_pesanan WHERE id_input = $1", idInput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListPesanan retrieves every aggregate row, nearest deadline first
func (q *queries) ListPesanan(ctx context.Context) ([]models.Pesanan, error) {
	rows := []models.Pesanan{}
	err := sqlx.SelectContext(ctx, q.ext, &rows,
		"SELECT "+pesananColumns+" FROM table_pesanan ORDER BY deadline, id_input")
	return rows, err
}

// GetDesign retrieves the design row
func (q *queries) GetDesign(ctx context.Context, idInput string) (*models.Design, error) {
	var row models.Design
	err := sqlx.GetContext(ctx, q.ext, &row, `
		SELECT id_input, id_desainer, layout_link, status_print, platform, qty, deadline, time_temp
		FROM table_design WHERE id_input = $1`, idInput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetProduction retrieves the production row
func (q *queries) GetProduction(ctx context.Context, idInput string) (*models.Production, error) {
	var row models.Production
	err := sqlx.GetContext(ctx, q.ext, &row, `
		SELECT id_input, id_penjahit, id_qc, status_print, status_produksi, platform, qty, deadline, time_temp
		FROM table_prod WHERE id_input = $1`, idInput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

const urgentColumns = "id_input, platform, qty, deadline, status_print, status_produksi"

// GetUrgent retrieves the urgent row
func (q *queries) GetUrgent(ctx context.Context, idInput string) (*models.Urgent, error) {
	var row models.Urgent
	err := sqlx.GetContext(ctx, q.ext, &row,
		"SELECT "+urgentColumns+" FROM table_urgent WHERE id_input = $1", idInput)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListUrgent retrieves urgent rows with a deadline on or after day. A zero
// day lists every row.
func (q *queries) ListUrgent(ctx context.Context, day time.Time) ([]models.Urgent, error) {
	rows := []models.Urgent{}
	if day.IsZero() {
		err := sqlx.SelectContext(ctx, q.ext, &rows,
			"SELECT "+urgentColumns+" FROM table_urgent ORDER BY deadline, id_input")
		return rows, err
	}
	err := sqlx.SelectContext(ctx, q.ext, &rows,
		"SELECT "+urgentColumns+" FROM table_urgent WHERE deadline >= $1 ORDER BY deadline, id_input",
		dateArg(day))
	return rows, err
}
