package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"order-sync/internal/models"
)

// memState is the full table set; a transaction works on a copy of it.
type memState struct {
	inputs  map[string]models.InputOrder
	pesanan map[string]models.Pesanan
	design  map[string]models.Design
	prod    map[string]models.Production
	urgent  map[string]models.Urgent
}

func newMemState() *memState {
	return &memState{
		inputs:  map[string]models.InputOrder{},
		pesanan: map[string]models.Pesanan{},
		design:  map[string]models.Design{},
		prod:    map[string]models.Production{},
		urgent:  map[string]models.Urgent{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.inputs {
		c.inputs[k] = v
	}
	for k, v := range s.pesanan {
		c.pesanan[k] = v
	}
	for k, v := range s.design {
		c.design[k] = v
	}
	for k, v := range s.prod {
		c.prod[k] = v
	}
	for k, v := range s.urgent {
		c.urgent[k] = v
	}
	return c
}

// memRepo is an in-memory Repository. Transactions are serialized and only
// swap their copy in on success, so a failing fn leaves no trace.
type memRepo struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *memState

	calls []string
	// fail, when set, is consulted before every statement.
	fail func(method, idInput string) error
}

func newMemRepo() *memRepo {
	return &memRepo{state: newMemState()}
}

func (r *memRepo) InTx(ctx context.Context, fn func(q Queries) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	tx := r.state.clone()
	r.mu.Unlock()

	if err := fn(&memQueries{repo: r, st: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = tx
	r.mu.Unlock()
	return nil
}

func (r *memRepo) Queries() Queries {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &memQueries{repo: r, st: r.state.clone()}
}

func (r *memRepo) snapshot() *memState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

func (r *memRepo) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *memRepo) resetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

type memQueries struct {
	repo *memRepo
	st   *memState
}

func (q *memQueries) record(ctx context.Context, method, idInput string) error {
	q.repo.mu.Lock()
	q.repo.calls = append(q.repo.calls, method)
	fail := q.repo.fail
	q.repo.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if fail != nil {
		return fail(method, idInput)
	}
	return nil
}

func (q *memQueries) LockIDPrefix(ctx context.Context, prefix string) error {
	return q.record(ctx, "LockIDPrefix", prefix)
}

func (q *memQueries) LockOrder(ctx context.Context, idInput string) error {
	return q.record(ctx, "LockOrder", idInput)
}

func (q *memQueries) LastIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	if err := q.record(ctx, "LastIDWithPrefix", prefix); err != nil {
		return "", err
	}
	last := ""
	for id := range q.st.inputs {
		if strings.HasPrefix(id, prefix+"-") && len(id) == len(prefix)+6 && id > last {
			last = id
		}
	}
	return last, nil
}

func (q *memQueries) InsertInputOrder(ctx context.Context, order *models.InputOrder) error {
	if err := q.record(ctx, "InsertInputOrder", order.IDInput); err != nil {
		return err
	}
	if _, ok := q.st.inputs[order.IDInput]; ok {
		return fmt.Errorf("duplicate id_input: %s", order.IDInput)
	}
	q.st.inputs[order.IDInput] = *order
	return nil
}

func (q *memQueries) GetInputOrder(ctx context.Context, idInput string) (*models.InputOrder, error) {
	if err := q.record(ctx, "GetInputOrder", idInput); err != nil {
		return nil, err
	}
	row, ok := q.st.inputs[idInput]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (q *memQueries) ListInputOrders(ctx context.Context) ([]models.InputOrder, error) {
	if err := q.record(ctx, "ListInputOrders", ""); err != nil {
		return nil, err
	}
	rows := []models.InputOrder{}
	for _, id := range sortedKeys(q.st.inputs) {
		rows = append(rows, q.st.inputs[id])
	}
	return rows, nil
}

func (q *memQueries) ListInputIDs(ctx context.Context) ([]string, error) {
	if err := q.record(ctx, "ListInputIDs", ""); err != nil {
		return nil, err
	}
	return sortedKeys(q.st.inputs), nil
}

func (q *memQueries) ListInputOrdersByDeadline(ctx context.Context, deadline time.Time) ([]models.InputOrder, error) {
	if err := q.record(ctx, "ListInputOrdersByDeadline", ""); err != nil {
		return nil, err
	}
	rows := []models.InputOrder{}
	for _, id := range sortedKeys(q.st.inputs) {
		if sameDay(q.st.inputs[id].Deadline, deadline) {
			rows = append(rows, q.st.inputs[id])
		}
	}
	return rows, nil
}

func (q *memQueries) UpsertPesanan(ctx context.Context, order *models.InputOrder, now time.Time) error {
	if err := q.record(ctx, "UpsertPesanan", order.IDInput); err != nil {
		return err
	}
	row, ok := q.st.pesanan[order.IDInput]
	if !ok {
		q.st.pesanan[order.IDInput] = models.Pesanan{
			IDInput:        order.IDInput,
			TimeTemp:       order.TimeTemp,
			IDPesanan:      order.IDPesanan,
			IDAdmin:        order.IDAdmin,
			Platform:       order.Platform,
			Qty:            order.Qty,
			NamaKet:        order.NamaKet,
			Link:           order.Link,
			Deadline:       order.Deadline,
			PrintStatus:    models.PrintStatusPending,
			StatusProduksi: models.ProductionStatusEditing,
			LastSyncedAt:   now,
		}
		return nil
	}

	changed := !row.TimeTemp.Equal(order.TimeTemp) || row.IDPesanan != order.IDPesanan ||
		row.IDAdmin != order.IDAdmin || row.Platform != order.Platform || row.Qty != order.Qty ||
		row.NamaKet != order.NamaKet || row.Link != order.Link || !sameDay(row.Deadline, order.Deadline)
	if !changed {
		return nil
	}
	row.TimeTemp = order.TimeTemp
	row.IDPesanan = order.IDPesanan
	row.IDAdmin = order.IDAdmin
	row.Platform = order.Platform
	row.Qty = order.Qty
	row.NamaKet = order.NamaKet
	row.Link = order.Link
	row.Deadline = order.Deadline
	row.LastSyncedAt = now
	q.st.pesanan[order.IDInput] = row
	return nil
}

func (q *memQueries) UpsertDesign(ctx context.Context, order *models.InputOrder) error {
	if err := q.record(ctx, "UpsertDesign", order.IDInput); err != nil {
		return err
	}
	row, ok := q.st.design[order.IDInput]
	if !ok {
		row = models.Design{
			IDInput:     order.IDInput,
			IDDesainer:  order.IDDesainer,
			StatusPrint: models.PrintStatusPending,
		}
	}
	row.Platform = order.Platform
	row.Qty = order.Qty
	row.Deadline = order.Deadline
	row.TimeTemp = order.TimeTemp
	q.st.design[order.IDInput] = row
	return nil
}

func (q *memQueries) UpsertProduction(ctx context.Context, order *models.InputOrder) error {
	if err := q.record(ctx, "UpsertProduction", order.IDInput); err != nil {
		return err
	}
	row, ok := q.st.prod[order.IDInput]
	if !ok {
		row = models.Production{
			IDInput:        order.IDInput,
			IDPenjahit:     order.IDPenjahit,
			IDQC:           order.IDQC,
			StatusPrint:    models.PrintStatusPending,
			StatusProduksi: models.ProductionStatusEditing,
		}
	}
	row.Platform = order.Platform
	row.Qty = order.Qty
	row.Deadline = order.Deadline
	row.TimeTemp = order.TimeTemp
	q.st.prod[order.IDInput] = row
	return nil
}

func (q *memQueries) UpsertUrgent(ctx context.Context, order *models.InputOrder) error {
	if err := q.record(ctx, "UpsertUrgent", order.IDInput); err != nil {
		return err
	}
	row := models.Urgent{
		IDInput:        order.IDInput,
		Platform:       order.Platform,
		Qty:            order.Qty,
		Deadline:       order.Deadline,
		StatusPrint:    models.PrintStatusPending,
		StatusProduksi: models.ProductionStatusEditing,
	}
	if d, ok := q.st.design[order.IDInput]; ok {
		row.StatusPrint = d.StatusPrint
	}
	if p, ok := q.st.prod[order.IDInput]; ok {
		row.StatusProduksi = p.StatusProduksi
	}
	q.st.urgent[order.IDInput] = row
	return nil
}

func (q *memQueries) DeleteUrgentBefore(ctx context.Context, day time.Time) (int64, error) {
	if err := q.record(ctx, "DeleteUrgentBefore", ""); err != nil {
		return 0, err
	}
	var n int64
	for id, row := range q.st.urgent {
		if row.Deadline.Before(day) {
			delete(q.st.urgent, id)
			n++
		}
	}
	return n, nil
}

func (q *memQueries) UpdateColumn(ctx context.Context, col models.Column, idInput string, value any) (bool, error) {
	if err := q.record(ctx, "UpdateColumn", idInput); err != nil {
		return false, err
	}

	switch col.Table {
	case models.TableInput:
		row, ok := q.st.inputs[idInput]
		if !ok {
			return false, nil
		}
		switch col.Name {
		case "id_admin":
			row.IDAdmin = value.(string)
		case "qty":
			row.Qty = value.(int)
		case "deadline":
			row.Deadline = value.(time.Time)
		case "platform":
			row.Platform = value.(string)
		default:
			return false, fmt.Errorf("column %s is not writable", col.Name)
		}
		q.st.inputs[idInput] = row

	case models.TableDesign:
		row, ok := q.st.design[idInput]
		if !ok {
			return false, nil
		}
		switch col.Name {
		case "id_desainer":
			row.IDDesainer = value.(*string)
		case "status_print":
			row.StatusPrint = value.(string)
		case "layout_link":
			row.LayoutLink = value.(string)
		case "platform":
			row.Platform = value.(string)
		case "qty":
			row.Qty = value.(int)
		case "deadline":
			row.Deadline = value.(time.Time)
		default:
			return false, fmt.Errorf("column %s is not writable", col.Name)
		}
		q.st.design[idInput] = row

	case models.TableProduction:
		row, ok := q.st.prod[idInput]
		if !ok {
			return false, nil
		}
		switch col.Name {
		case "id_penjahit":
			row.IDPenjahit = value.(*string)
		case "id_qc":
			row.IDQC = value.(*string)
		case "status_produksi":
			row.StatusProduksi = value.(string)
		case "platform":
			row.Platform = value.(string)
		case "qty":
			row.Qty = value.(int)
		case "deadline":
			row.Deadline = value.(time.Time)
		default:
			return false, fmt.Errorf("column %s is not writable", col.Name)
		}
		q.st.prod[idInput] = row

	default:
		return false, fmt.Errorf("unknown table %s", col.Table)
	}
	return true, nil
}

func (q *memQueries) PropagateStages(ctx context.Context, idInput string, now time.Time) (bool, error) {
	if err := q.record(ctx, "PropagateStages", idInput); err != nil {
		return false, err
	}
	agg, ok := q.st.pesanan[idInput]
	if !ok {
		return false, nil
	}

	if d, ok := q.st.design[idInput]; ok {
		agg.IDDesainer = d.IDDesainer
		agg.LayoutLink = d.LayoutLink
		agg.PrintStatus = d.StatusPrint
		agg.DesainerAssignedAt = stampOnce(agg.DesainerAssignedAt, d.IDDesainer, now)
	}
	if p, ok := q.st.prod[idInput]; ok {
		agg.IDPenjahit = p.IDPenjahit
		agg.IDQC = p.IDQC
		agg.StatusProduksi = p.StatusProduksi
		agg.PenjahitAssignedAt = stampOnce(agg.PenjahitAssignedAt, p.IDPenjahit, now)
		agg.QCAssignedAt = stampOnce(agg.QCAssignedAt, p.IDQC, now)
	}
	q.st.pesanan[idInput] = agg

	if d, ok := q.st.design[idInput]; ok {
		if p, ok := q.st.prod[idInput]; ok {
			p.StatusPrint = d.StatusPrint
			q.st.prod[idInput] = p
		}
	}
	if u, ok := q.st.urgent[idInput]; ok {
		if d, ok := q.st.design[idInput]; ok {
			u.StatusPrint = d.StatusPrint
		}
		if p, ok := q.st.prod[idInput]; ok {
			u.StatusProduksi = p.StatusProduksi
		}
		q.st.urgent[idInput] = u
	}
	return true, nil
}

func (q *memQueries) DeleteOrder(ctx context.Context, idInput string) (bool, error) {
	if err := q.record(ctx, "DeleteOrder", idInput); err != nil {
		return false, err
	}
	delete(q.st.urgent, idInput)
	delete(q.st.prod, idInput)
	delete(q.st.design, idInput)
	delete(q.st.pesanan, idInput)
	_, found := q.st.inputs[idInput]
	delete(q.st.inputs, idInput)
	return found, nil
}

func (q *memQueries) GetPesanan(ctx context.Context, idInput string) (*models.Pesanan, error) {
	if err := q.record(ctx, "GetPesanan", idInput); err != nil {
		return nil, err
	}
	row, ok := q.st.pesanan[idInput]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (q *memQueries) ListPesanan(ctx context.Context) ([]models.Pesanan, error) {
	if err := q.record(ctx, "ListPesanan", ""); err != nil {
		return nil, err
	}
	rows := []models.Pesanan{}
	for _, id := range sortedKeys(q.st.pesanan) {
		rows = append(rows, q.st.pesanan[id])
	}
	return rows, nil
}

func (q *memQueries) GetDesign(ctx context.Context, idInput string) (*models.Design, error) {
	if err := q.record(ctx, "GetDesign", idInput); err != nil {
		return nil, err
	}
	row, ok := q.st.design[idInput]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (q *memQueries) GetProduction(ctx context.Context, idInput string) (*models.Production, error) {
	if err := q.record(ctx, "GetProduction", idInput); err != nil {
		return nil, err
	}
	row, ok := q.st.prod[idInput]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (q *memQueries) GetUrgent(ctx context.Context, idInput string) (*models.Urgent, error) {
	if err := q.record(ctx, "GetUrgent", idInput); err != nil {
		return nil, err
	}
	row, ok := q.st.urgent[idInput]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (q *memQueries) ListUrgent(ctx context.Context, day time.Time) ([]models.Urgent, error) {
	if err := q.record(ctx, "ListUrgent", ""); err != nil {
		return nil, err
	}
	rows := []models.Urgent{}
	for _, id := range sortedKeys(q.st.urgent) {
		row := q.st.urgent[id]
		if day.IsZero() || !row.Deadline.Before(day) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func stampOnce(current *time.Time, assignee *string, now time.Time) *time.Time {
	if current != nil || assignee == nil {
		return current
	}
	t := now
	return &t
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
