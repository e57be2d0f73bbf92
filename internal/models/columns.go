package models

import "strings"

// Table names a table whose columns can be edited one at a time.
type Table string

const (
	TableAggregate  Table = "aggregate"
	TableDesign     Table = "design"
	TableProduction Table = "production"
	// TableInput is the canonical table. Its columns are only written
	// through aggregate edits and are never looked up directly.
	TableInput Table = "input"
)

// SQLName returns the physical table name.
func (t Table) SQLName() string {
	switch t {
	case TableAggregate:
		return "table_pesanan"
	case TableDesign:
		return "table_design"
	case TableProduction:
		return "table_prod"
	case TableInput:
		return "table_input_order"
	}
	return ""
}

// ParseTable accepts the logical names plus the physical/short aliases used by the stage UIs.
func ParseTable(s string) (Table, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aggregate", "pesanan", "table_pesanan":
		return TableAggregate, true
	case "design", "table_design":
		return TableDesign, true
	case "production", "prod", "table_prod":
		return TableProduction, true
	}
	return "", false
}

// ColumnKind decides how an incoming value is coerced before it is written.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNullableText
	KindInteger
	KindDate
)

// Role is the staff role an assignment column holds.
type Role string

const (
	RoleNone     Role = ""
	RoleDesainer Role = "desainer"
	RolePenjahit Role = "penjahit"
	RoleQC       Role = "qc"
)

// Column is one writable column. The set of Column values below is the
// complete allow-list; nothing else can reach an UPDATE statement.
type Column struct {
	Table Table
	Name  string
	Kind  ColumnKind
	// Propagates marks stage columns that are copied into table_pesanan
	// (and table_urgent) after they are written.
	Propagates bool
	// Role is set on assignment columns, which carry a first-assigned timestamp.
	Role Role
}

var (
	AggregateIDAdmin        = Column{Table: TableAggregate, Name: "id_admin", Kind: KindText}
	AggregateQty            = Column{Table: TableAggregate, Name: "qty", Kind: KindInteger}
	AggregateDeadline       = Column{Table: TableAggregate, Name: "deadline", Kind: KindDate}
	AggregatePlatform       = Column{Table: TableAggregate, Name: "platform", Kind: KindText}
	AggregateIDDesainer     = Column{Table: TableAggregate, Name: "id_desainer", Kind: KindNullableText, Role: RoleDesainer}
	AggregatePrintStatus    = Column{Table: TableAggregate, Name: "print_status", Kind: KindText}
	AggregateLayoutLink     = Column{Table: TableAggregate, Name: "layout_link", Kind: KindText}
	AggregateIDPenjahit     = Column{Table: TableAggregate, Name: "id_penjahit", Kind: KindNullableText, Role: RolePenjahit}
	AggregateIDQC           = Column{Table: TableAggregate, Name: "id_qc", Kind: KindNullableText, Role: RoleQC}
	AggregateStatusProduksi = Column{Table: TableAggregate, Name: "status_produksi", Kind: KindText}

	InputIDAdmin  = Column{Table: TableInput, Name: "id_admin", Kind: KindText}
	InputQty      = Column{Table: TableInput, Name: "qty", Kind: KindInteger}
	InputDeadline = Column{Table: TableInput, Name: "deadline", Kind: KindDate}
	InputPlatform = Column{Table: TableInput, Name: "platform", Kind: KindText}

	DesignIDDesainer  = Column{Table: TableDesign, Name: "id_desainer", Kind: KindNullableText, Propagates: true, Role: RoleDesainer}
	DesignStatusPrint = Column{Table: TableDesign, Name: "status_print", Kind: KindText, Propagates: true}
	DesignLayoutLink  = Column{Table: TableDesign, Name: "layout_link", Kind: KindText, Propagates: true}
	DesignPlatform    = Column{Table: TableDesign, Name: "platform", Kind: KindText}
	DesignQty         = Column{Table: TableDesign, Name: "qty", Kind: KindInteger}
	DesignDeadline    = Column{Table: TableDesign, Name: "deadline", Kind: KindDate}

	ProductionIDPenjahit     = Column{Table: TableProduction, Name: "id_penjahit", Kind: KindNullableText, Propagates: true, Role: RolePenjahit}
	ProductionIDQC           = Column{Table: TableProduction, Name: "id_qc", Kind: KindNullableText, Propagates: true, Role: RoleQC}
	ProductionStatusProduksi = Column{Table: TableProduction, Name: "status_produksi", Kind: KindText, Propagates: true}
	ProductionPlatform       = Column{Table: TableProduction, Name: "platform", Kind: KindText}
	ProductionQty            = Column{Table: TableProduction, Name: "qty", Kind: KindInteger}
	ProductionDeadline       = Column{Table: TableProduction, Name: "deadline", Kind: KindDate}
)

// WritableColumns is the allow-list per table.
var WritableColumns = map[Table][]Column{
	TableAggregate: {
		AggregateIDAdmin, AggregateQty, AggregateDeadline, AggregatePlatform,
		AggregateIDDesainer, AggregatePrintStatus, AggregateLayoutLink,
		AggregateIDPenjahit, AggregateIDQC, AggregateStatusProduksi,
	},
	TableDesign: {
		DesignIDDesainer, DesignStatusPrint, DesignLayoutLink,
		DesignPlatform, DesignQty, DesignDeadline,
	},
	TableProduction: {
		ProductionIDPenjahit, ProductionIDQC, ProductionStatusProduksi,
		ProductionPlatform, ProductionQty, ProductionDeadline,
	},
}

// aggregateOwners maps each aggregate column to the column it is a copy of.
var aggregateOwners = map[string]Column{
	"id_admin":        InputIDAdmin,
	"qty":             InputQty,
	"deadline":        InputDeadline,
	"platform":        InputPlatform,
	"id_desainer":     DesignIDDesainer,
	"print_status":    DesignStatusPrint,
	"layout_link":     DesignLayoutLink,
	"id_penjahit":     ProductionIDPenjahit,
	"id_qc":           ProductionIDQC,
	"status_produksi": ProductionStatusProduksi,
}

// Owner returns the column an edit is stored in. Stage and canonical columns
// own themselves; an aggregate column is owned by the stage or canonical
// column it is projected from.
func (c Column) Owner() Column {
	if c.Table != TableAggregate {
		return c
	}
	return aggregateOwners[c.Name]
}

// StoredColumns lists every column an UPDATE statement can target.
func StoredColumns() []Column {
	var cols []Column
	for _, table := range []Table{TableDesign, TableProduction} {
		cols = append(cols, WritableColumns[table]...)
	}
	return append(cols, InputIDAdmin, InputQty, InputDeadline, InputPlatform)
}

// columnAliases maps names used by older stage UIs onto the canonical column names.
var columnAliases = map[string]string{
	"desainer":  "id_desainer",
	"id_desain": "id_desainer",
	"penjahit":  "id_penjahit",
	"qc":        "id_qc",
	"admin":     "id_admin",
}

// LookupColumn resolves a caller-supplied column name against the table's allow-list.
func LookupColumn(t Table, name string) (Column, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := columnAliases[name]; ok {
		name = alias
	}
	// print status is spelled differently on the aggregate and the stage tables
	switch {
	case t == TableAggregate && name == "status_print":
		name = "print_status"
	case t != TableAggregate && name == "print_status":
		name = "status_print"
	}
	for _, c := range WritableColumns[t] {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
