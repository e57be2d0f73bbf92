package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupColumn(t *testing.T) {
	tests := []struct {
		table Table
		name  string
		want  Column
	}{
		{TableDesign, "status_print", DesignStatusPrint},
		{TableDesign, "print_status", DesignStatusPrint},
		{TableAggregate, "status_print", AggregatePrintStatus},
		{TableAggregate, " Print_Status ", AggregatePrintStatus},
		{TableDesign, "id_desain", DesignIDDesainer},
		{TableProduction, "penjahit", ProductionIDPenjahit},
		{TableProduction, "QC", ProductionIDQC},
		{TableAggregate, "admin", AggregateIDAdmin},
	}
	for _, tt := range tests {
		got, ok := LookupColumn(tt.table, tt.name)
		require.True(t, ok, "%s.%s", tt.table, tt.name)
		assert.Equal(t, tt.want, got)
	}
}

func TestLookupColumnRejects(t *testing.T) {
	rejected := []struct {
		table Table
		name  string
	}{
		{TableAggregate, "id_input"},
		{TableAggregate, "last_synced_at"},
		{TableAggregate, "desainer_assigned_at"},
		{TableDesign, "id_penjahit"},
		{TableProduction, "layout_link"},
		{TableDesign, "time_temp"},
		{TableDesign, "status_print; DROP TABLE table_design"},
		{Table("table_input_order"), "qty"},
	}
	for _, tt := range rejected {
		_, ok := LookupColumn(tt.table, tt.name)
		assert.False(t, ok, "%s.%s", tt.table, tt.name)
	}
}

func TestWritableColumnsAreConsistent(t *testing.T) {
	for table, cols := range WritableColumns {
		seen := map[string]bool{}
		for _, c := range cols {
			assert.Equal(t, table, c.Table, c.Name)
			assert.False(t, seen[c.Name], "duplicate %s.%s", table, c.Name)
			seen[c.Name] = true
			if c.Role != RoleNone {
				assert.Equal(t, KindNullableText, c.Kind, c.Name)
			}
			if table == TableAggregate {
				assert.False(t, c.Propagates, c.Name)
			}
		}
	}
}

func TestParseTable(t *testing.T) {
	for raw, want := range map[string]Table{
		"aggregate":     TableAggregate,
		"table_pesanan": TableAggregate,
		"Design":        TableDesign,
		"prod":          TableProduction,
		" table_prod ":  TableProduction,
	} {
		got, ok := ParseTable(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got)
	}

	_, ok := ParseTable("table_urgent")
	assert.False(t, ok)
	assert.Equal(t, "", Table("table_urgent").SQLName())
	assert.Equal(t, "table_prod", TableProduction.SQLName())
}

func TestAggregateColumnsHaveOwners(t *testing.T) {
	for _, c := range WritableColumns[TableAggregate] {
		owner := c.Owner()
		require.NotEqual(t, Column{}, owner, c.Name)
		assert.NotEqual(t, TableAggregate, owner.Table, c.Name)
		assert.Equal(t, c.Kind, owner.Kind, c.Name)
		assert.Contains(t, StoredColumns(), owner, c.Name)
	}

	assert.Equal(t, DesignStatusPrint, AggregatePrintStatus.Owner())
	assert.Equal(t, ProductionIDQC, AggregateIDQC.Owner())
	assert.Equal(t, InputQty, AggregateQty.Owner())
	assert.Equal(t, DesignQty, DesignQty.Owner())
	assert.Equal(t, "table_input_order", TableInput.SQLName())

	_, ok := ParseTable("input")
	assert.False(t, ok)
	_, ok = LookupColumn(TableInput, "qty")
	assert.False(t, ok)
}
