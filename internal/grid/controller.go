package grid

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/SkySouL159/RMS/internal/store"
)

// Store is the slice of the remote-store client the controller needs.
// *store.Client satisfies it; tests substitute counting stubs.
type Store interface {
	Select(ctx context.Context, table string) ([]store.Row, error)
	Update(ctx context.Context, table string, id int64, patch map[string]any) (store.Row, error)
}

// CellRef identifies the single cell currently open for inline editing.
type CellRef struct {
	RowID  int64  `json:"row_id"`
	Column string `json:"column"`
}

// ChangeType mirrors the remote store's change-event kinds.
type ChangeType string

// Change-event kinds, as delivered by the realtime stream.
const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change describes one mutation the controller applied to its row set,
// whether it came from a confirmed local commit or from the realtime
// stream. Consumers (SSE fan-out, change audit) must reconcile
// idempotently: the same logical change may be observed twice when a
// local commit is later echoed by the stream.
type Change struct {
	Grid string     `json:"grid"`
	Type ChangeType `json:"type"`
	ID   int64      `json:"id"`
	Row  store.Row  `json:"row,omitempty"` // post-change row, nil on delete
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Rows    []store.Row
	Loading bool
	Err     string
	Editing *CellRef
}

// Controller owns the authoritative in-memory row set of one grid and
// gates its single edit session. All methods are safe for concurrent
// use; request handlers and the realtime subscriber share one instance.
type Controller struct {
	schema Schema
	store  Store

	// onChange, when set, observes every applied mutation. It is called
	// without the lock held and must not call back into the controller.
	onChange func(Change)

	mu      sync.RWMutex
	rows    []store.Row
	loaded  bool
	loadErr error
	editing *CellRef
	busy    bool // a commit is awaiting remote confirmation
}

// NewController builds a controller for one grid schema.
func NewController(schema Schema, st Store) *Controller {
	return &Controller{schema: schema, store: st}
}

// OnChange registers the change observer. Call before the controller is
// shared across goroutines.
func (g *Controller) OnChange(fn func(Change)) { g.onChange = fn }

// Schema returns the grid's static column configuration.
func (g *Controller) Schema() Schema { return g.schema }

func (g *Controller) notify(ch Change) {
	if g.onChange != nil {
		g.onChange(ch)
	}
}

// Load fetches the full row set, drops rows missing a usable id or a
// numeric room identifier, derives computed columns, sorts ascending by
// room and replaces the in-memory set. Loading twice against unchanged
// remote state yields an identical set. On failure the previous set is
// discarded and the error is kept for the presentation layer; no
// partial data is ever shown.
func (g *Controller) Load(ctx context.Context) error {
	fetched, err := g.store.Select(ctx, g.schema.Table)
	if err != nil {
		g.mu.Lock()
		g.rows = nil
		g.loaded = false
		g.loadErr = err
		g.mu.Unlock()
		return err
	}

	rows := make([]store.Row, 0, len(fetched))
	for _, r := range fetched {
		if _, ok := r.ID(); !ok {
			continue
		}
		if !r.HasNumeric(g.schema.RoomColumn) {
			continue
		}
		g.schema.Derive(r)
		rows = append(rows, r)
	}
	g.sortRows(rows)

	g.mu.Lock()
	g.rows = rows
	g.loaded = true
	g.loadErr = nil
	g.mu.Unlock()
	return nil
}

func (g *Controller) sortRows(rows []store.Row) {
	col := g.schema.RoomColumn
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Decimal(col).Cmp(rows[j].Decimal(col)) < 0
	})
}

// Snapshot returns a consistent copy of the grid's presentation state.
func (g *Controller) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rows := make([]store.Row, len(g.rows))
	copy(rows, g.rows)
	snap := Snapshot{
		Rows:    rows,
		Loading: !g.loaded && g.loadErr == nil,
	}
	if g.loadErr != nil {
		snap.Err = g.loadErr.Error()
	}
	if g.editing != nil {
		ref := *g.editing
		snap.Editing = &ref
	}
	return snap
}

// Rows returns a copy of the current row set in display order.
func (g *Controller) Rows() []store.Row {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rows := make([]store.Row, len(g.rows))
	copy(rows, g.rows)
	return rows
}

// EditTarget returns the active edit session, or nil when idle.
func (g *Controller) EditTarget() *CellRef {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.editing == nil {
		return nil
	}
	ref := *g.editing
	return &ref
}

// Totals sums bill_amount and point over the rows currently held in
// memory. It is recomputed on every call, never cached, so mid-edit
// optimistic values are reflected exactly.
func (g *Controller) Totals() (bill, points decimal.Decimal) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range g.rows {
		bill = bill.Add(r.Decimal("bill_amount"))
		points = points.Add(r.Decimal("point"))
	}
	return bill, points
}

// BeginEdit opens the single edit session on (id, column). Non-editable
// columns are rejected without touching the edit target, as is any
// request while a prior commit is still in flight.
func (g *Controller) BeginEdit(id int64, column string) error {
	if !g.schema.Editable(column) {
		return ErrColumnNotEditable
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return ErrNotLoaded
	}
	if g.busy {
		return ErrEditBusy
	}
	if g.indexOf(id) < 0 {
		return ErrRowNotFound
	}
	g.editing = &CellRef{RowID: id, Column: column}
	return nil
}

// CancelEdit discards the edit session without committing (focus lost
// with unchanged text, navigation away).
func (g *Controller) CancelEdit() {
	g.mu.Lock()
	g.editing = nil
	g.mu.Unlock()
}

// indexOf finds a row by id. Caller holds the lock.
func (g *Controller) indexOf(id int64) int {
	for i, r := range g.rows {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

// CommitEdit resolves the edit session on (id, column) with the text the
// user left in the cell.
//
// Identical trimmed text is fully inert: no network call, no row-set
// mutation (the comparison is literal, so "5" and "5.00" count as a real
// change). A real change is applied optimistically, PATCHed to the
// remote store together with any derived side-effect column, and then
// overwritten with the representation the store echoes back, rederiving
// computed columns from the echoed base fields. On failure the
// optimistic value is reverted. The edit target is cleared in every
// outcome.
func (g *Controller) CommitEdit(ctx context.Context, id int64, column, raw string) (store.Row, error) {
	if !g.schema.Editable(column) {
		return nil, ErrColumnNotEditable
	}

	g.mu.Lock()
	if !g.loaded {
		g.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if g.busy {
		g.mu.Unlock()
		return nil, ErrEditBusy
	}
	idx := g.indexOf(id)
	if idx < 0 {
		g.editing = nil
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: id %d", ErrRowNotFound, id)
	}
	prev := g.rows[idx]

	if strings.TrimSpace(raw) == strings.TrimSpace(prev.String(column)) {
		row := prev
		g.editing = nil
		g.mu.Unlock()
		return row, nil
	}

	// Optimistic update: the edited cell plus its locally derivable side
	// effects become visible immediately and are reverted on failure.
	optimistic := prev.Clone()
	optimistic[column] = raw
	g.schema.Derive(optimistic)
	g.rows[idx] = optimistic
	g.busy = true
	g.mu.Unlock()

	patch := map[string]any{column: raw}
	for k, v := range g.schema.SideEffects(prev, column, raw) {
		patch[k] = v
	}
	echoed, err := g.store.Update(ctx, g.schema.Table, id, patch)

	g.mu.Lock()
	g.busy = false
	g.editing = nil
	if err != nil {
		// Revert the optimistic value; the row may have been replaced or
		// removed by a realtime event in the meantime, in which case the
		// later write already won and there is nothing to restore.
		if i := g.indexOf(id); i >= 0 && reflect.DeepEqual(g.rows[i], optimistic) {
			g.rows[i] = prev
		}
		g.mu.Unlock()
		return nil, fmt.Errorf("commit %s.%s id=%d: %w", g.schema.Table, column, id, err)
	}

	// Server-confirmed base fields win over anything derived locally.
	g.schema.Derive(echoed)
	if i := g.indexOf(id); i >= 0 {
		g.rows[i] = echoed
	} else {
		g.rows = append(g.rows, echoed)
	}
	g.sortRows(g.rows)
	g.mu.Unlock()

	g.notify(Change{Grid: g.schema.Name, Type: ChangeUpdate, ID: id, Row: echoed})
	return echoed, nil
}

// ApplyEvent reconciles one realtime change event into the row set.
// Events are idempotent per id: inserts for a present id degrade to
// updates, updates for an absent id are inert (stale or out of order),
// deletes for an absent id are inert. Derived columns are recomputed
// from the event payload, never from stale local values.
func (g *Controller) ApplyEvent(eventType string, newRow, oldRow store.Row) {
	var applied *Change

	g.mu.Lock()
	if !g.loaded {
		g.mu.Unlock()
		return
	}
	switch ChangeType(eventType) {
	case ChangeInsert, ChangeUpdate:
		id, ok := newRow.ID()
		if !ok {
			break
		}
		row := newRow.Clone()
		g.schema.Derive(row)
		if i := g.indexOf(id); i >= 0 {
			g.rows[i] = row
		} else if ChangeType(eventType) == ChangeInsert {
			g.rows = append(g.rows, row)
		} else {
			// UPDATE for a row we do not hold: inert.
			break
		}
		g.sortRows(g.rows)
		applied = &Change{Grid: g.schema.Name, Type: ChangeType(eventType), ID: id, Row: row}
	case ChangeDelete:
		id, ok := oldRow.ID()
		if !ok {
			break
		}
		i := g.indexOf(id)
		if i < 0 {
			break
		}
		g.rows = append(g.rows[:i], g.rows[i+1:]...)
		if g.editing != nil && g.editing.RowID == id {
			g.editing = nil
		}
		applied = &Change{Grid: g.schema.Name, Type: ChangeDelete, ID: id}
	}
	g.mu.Unlock()

	if applied != nil {
		g.notify(*applied)
	}
}
