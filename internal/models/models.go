package models

import "time"

// InputOrder is the captured order row in table_input_order. Every other
// table is a projection of it.
type InputOrder struct {
	IDInput   string    `db:"id_input" json:"id_input"`
	TimeTemp  time.Time `db:"time_temp" json:"time_temp"`
	IDPesanan string    `db:"id_pesanan" json:"id_pesanan"`
	IDAdmin   string    `db:"id_admin" json:"id_admin"`
	Platform  string    `db:"platform" json:"platform"`
	Qty       int       `db:"qty" json:"qty"`
	NamaKet   string    `db:"nama_ket" json:"nama_ket"`
	Link      string    `db:"link" json:"link"`
	Deadline  time.Time `db:"deadline" json:"deadline"`

	// Initial assignments; seeded into the stage tables on first sync only.
	IDDesainer *string `db:"id_desainer" json:"id_desainer,omitempty"`
	IDPenjahit *string `db:"id_penjahit" json:"id_penjahit,omitempty"`
	IDQC       *string `db:"id_qc" json:"id_qc,omitempty"`
}

// Pesanan is the consolidated cross-stage view in table_pesanan.
type Pesanan struct {
	IDInput   string    `db:"id_input" json:"id_input"`
	TimeTemp  time.Time `db:"time_temp" json:"time_temp"`
	IDPesanan string    `db:"id_pesanan" json:"id_pesanan"`
	IDAdmin   string    `db:"id_admin" json:"id_admin"`
	Platform  string    `db:"platform" json:"platform"`
	Qty       int       `db:"qty" json:"qty"`
	NamaKet   string    `db:"nama_ket" json:"nama_ket"`
	Link      string    `db:"link" json:"link"`
	Deadline  time.Time `db:"deadline" json:"deadline"`

	IDDesainer     *string `db:"id_desainer" json:"id_desainer"`
	IDPenjahit     *string `db:"id_penjahit" json:"id_penjahit"`
	IDQC           *string `db:"id_qc" json:"id_qc"`
	LayoutLink     string  `db:"layout_link" json:"layout_link"`
	PrintStatus    string  `db:"print_status" json:"print_status"`
	StatusProduksi string  `db:"status_produksi" json:"status_produksi"`

	DesainerAssignedAt *time.Time `db:"desainer_assigned_at" json:"desainer_assigned_at"`
	PenjahitAssignedAt *time.Time `db:"penjahit_assigned_at" json:"penjahit_assigned_at"`
	QCAssignedAt       *time.Time `db:"qc_assigned_at" json:"qc_assigned_at"`
	LastSyncedAt       time.Time  `db:"last_synced_at" json:"last_synced_at"`
}

// Design is the design-stage projection in table_design.
type Design struct {
	IDInput     string    `db:"id_input" json:"id_input"`
	IDDesainer  *string   `db:"id_desainer" json:"id_desainer"`
	LayoutLink  string    `db:"layout_link" json:"layout_link"`
	StatusPrint string    `db:"status_print" json:"status_print"`
	Platform    string    `db:"platform" json:"platform"`
	Qty         int       `db:"qty" json:"qty"`
	Deadline    time.Time `db:"deadline" json:"deadline"`
	TimeTemp    time.Time `db:"time_temp" json:"time_temp"`
}

// Production is the sewing/QC projection in table_prod.
type Production struct {
	IDInput        string    `db:"id_input" json:"id_input"`
	IDPenjahit     *string   `db:"id_penjahit" json:"id_penjahit"`
	IDQC           *string   `db:"id_qc" json:"id_qc"`
	StatusPrint    string    `db:"status_print" json:"status_print"`
	StatusProduksi string    `db:"status_produksi" json:"status_produksi"`
	Platform       string    `db:"platform" json:"platform"`
	Qty            int       `db:"qty" json:"qty"`
	Deadline       time.Time `db:"deadline" json:"deadline"`
	TimeTemp       time.Time `db:"time_temp" json:"time_temp"`
}

// Urgent is an order promoted because its deadline was the promotion day.
type Urgent struct {
	IDInput        string    `db:"id_input" json:"id_input"`
	Platform       string    `db:"platform" json:"platform"`
	Qty            int       `db:"qty" json:"qty"`
	Deadline       time.Time `db:"deadline" json:"deadline"`
	StatusPrint    string    `db:"status_print" json:"status_print"`
	StatusProduksi string    `db:"status_produksi" json:"status_produksi"`
}

// OrderView bundles the canonical row with every projection that exists for it.
type OrderView struct {
	Input      *InputOrder `json:"input"`
	Pesanan    *Pesanan    `json:"pesanan,omitempty"`
	Design     *Design     `json:"design,omitempty"`
	Production *Production `json:"production,omitempty"`
	Urgent     *Urgent     `json:"urgent,omitempty"`
}

// Placeholder stage statuses written on first insert only
const (
	PrintStatusPending      = "pending"
	ProductionStatusEditing = "editing"
)

// DateLayout is the wire and storage format of deadlines.
const DateLayout = "2006-01-02"

// StaffMember is an entry of the reference directory.
type StaffMember struct {
	ID   int64  `json:"ID"`
	Nama string `json:"Nama"`
}

// References lists the staff that may be assigned to an order, keyed by role table.
var References = map[string][]StaffMember{
	"table_admin": {
		{ID: 1001, Nama: "Lilis"},
		{ID: 1002, Nama: "Ina"},
	},
	"table_desainer": {
		{ID: 1101, Nama: "IMAM"},
		{ID: 1102, Nama: "JHODI"},
	},
	"table_penjahit": {
		{ID: 1301, Nama: "Mas Ari"},
		{ID: 1302, Nama: "Mas Saep"},
		{ID: 1303, Nama: "Mas Egeng"},
	},
	"table_qc": {
		{ID: 1401, Nama: "tita"},
		{ID: 1402, Nama: "ina"},
		{ID: 1403, Nama: "lilis"},
	},
}
