package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"order-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntakeAcceptsFormAndSnakeCaseNames(t *testing.T) {
	order, err := parseIntake(map[string]any{
		"id_pesanan": " INV-9 ",
		"id_admin":   json.Number("1002"),
		"platform":   "TikTok",
		"qty":        "12",
		"deadline":   "2024-06-03T10:00:00+07:00",
		"desainer":   float64(1102),
		"id_qc":      "",
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-9", order.IDPesanan)
	assert.Equal(t, "1002", order.IDAdmin)
	assert.Equal(t, "TikTok", order.Platform)
	assert.Equal(t, 12, order.Qty)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), order.Deadline)
	require.NotNil(t, order.IDDesainer)
	assert.Equal(t, "1102", *order.IDDesainer)
	assert.Nil(t, order.IDPenjahit)
	assert.Nil(t, order.IDQC, "blank assignment means unassigned")
	assert.Empty(t, order.IDInput)
}

func TestParseIntakeOptionalFieldsDefault(t *testing.T) {
	order, err := parseIntake(map[string]any{
		"id_pesanan": "INV-10",
		"ID":         "1001",
		"Deadline":   "2024-06-03",
		"qty":        nil,
	})
	require.NoError(t, err)
	assert.Zero(t, order.Qty)
	assert.Empty(t, order.Platform)
	assert.Empty(t, order.Link)
}

func TestCoerceColumnValue(t *testing.T) {
	tests := []struct {
		col     models.Column
		in      any
		want    any
		wantErr bool
	}{
		{col: models.DesignQty, in: float64(7), want: 7},
		{col: models.DesignQty, in: " 8 ", want: 8},
		{col: models.DesignQty, in: 1.5, wantErr: true},
		{col: models.DesignQty, in: float64(3e9), wantErr: true},
		{col: models.DesignQty, in: "3000000000", wantErr: true},
		{col: models.DesignQty, in: "99999999999999999999", wantErr: true},
		{col: models.DesignQty, in: json.Number("-2147483649"), wantErr: true},
		{col: models.DesignQty, in: float64(math.MaxInt32), want: math.MaxInt32},
		{col: models.ProductionDeadline, in: "2024-06-09", want: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)},
		{col: models.ProductionDeadline, in: 20240609, wantErr: true},
		{col: models.DesignStatusPrint, in: " DONE ", want: "DONE"},
		{col: models.DesignStatusPrint, in: nil, want: ""},
		{col: models.DesignStatusPrint, in: true, wantErr: true},
		{col: models.DesignIDDesainer, in: nil, want: (*string)(nil)},
		{col: models.DesignIDDesainer, in: "  ", want: (*string)(nil)},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s.%s=%v", tt.col.Table, tt.col.Name, tt.in), func(t *testing.T) {
			got, err := coerceColumnValue(tt.col, tt.in)
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.col.Name, ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := coerceColumnValue(models.ProductionIDQC, float64(1401))
	require.NoError(t, err)
	id, ok := got.(*string)
	require.True(t, ok)
	assert.Equal(t, "1401", *id)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation failed on qty: must not be negative",
		(&ValidationError{Field: "qty", Reason: "must not be negative"}).Error())
	assert.Equal(t, "validation failed: empty body", (&ValidationError{Reason: "empty body"}).Error())
	assert.Equal(t, "id_input 0624-00001 not found in table_design",
		(&NotFoundError{Table: "table_design", IDInput: "0624-00001"}).Error())
	assert.Equal(t, "cannot generate id_input for 0624: identifier space exhausted",
		(&GenerationError{Prefix: "0624", Reason: "identifier space exhausted"}).Error())

	de := &DatabaseError{Op: "sync", Err: errors.New(`pq: relation "x" does not exist`)}
	assert.Contains(t, de.Error(), "pq:")
	assert.Equal(t, "database error during sync", de.PublicMessage())
	assert.False(t, de.Timeout())
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("sync", nil))

	ve := &ValidationError{Field: "qty", Reason: "bad"}
	assert.Same(t, ve, classify("sync", ve))

	wrapped := fmt.Errorf("inside tx: %w", &NotFoundError{Table: "table_pesanan", IDInput: "x"})
	assert.Equal(t, wrapped, classify("sync", wrapped))

	err := classify("sync", errors.New("broken pipe"))
	var de *DatabaseError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "sync", de.Op)

	assert.True(t, IsClientError(wrapped))
	assert.False(t, IsClientError(err))
	assert.Equal(t, "database", errorKind(err))
	assert.Equal(t, "not_found", errorKind(wrapped))
	assert.Equal(t, "database error during sync", publicReason(err))
	assert.Equal(t, ve.Error(), publicReason(ve))
}

func TestParseIntakeRejectsQtyBeyondInteger(t *testing.T) {
	fields := intakeFields("2024-06-20")
	fields["qty"] = float64(3e9)

	_, err := parseIntake(fields)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "qty", ve.Field)
	assert.Contains(t, ve.Reason, "out of range")
}
