package store

import (
	"context"
	"fmt"
	"time"

	"order-sync/internal/models"
)

// columnStatements holds one prepared UPDATE per stored column. Table and
// column names only ever come from models.StoredColumns.
var columnStatements = buildColumnStatements()

func buildColumnStatements() map[models.Column]string {
	stmts := make(map[models.Column]string)
	for _, col := range models.StoredColumns() {
		stmts[col] = fmt.Sprintf("UPDATE %s SET %s = $2 WHERE id_input = $1", col.Table.SQLName(), col.Name)
	}
	return stmts
}

// UpdateColumn writes one stored column and reports whether a row matched.
// table_pesanan is never written here; it only changes through projection.
func (q *queries) UpdateColumn(ctx context.Context, col models.Column, idInput string, value any) (bool, error) {
	query, ok := columnStatements[col]
	if !ok {
		return false, fmt.Errorf("column %s.%s is not writable", col.Table.SQLName(), col.Name)
	}

	if t, isTime := value.(time.Time); isTime {
		value = dateArg(t)
	}

	res, err := q.ext.ExecContext(ctx, query, idInput, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
