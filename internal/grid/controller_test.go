package grid

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/SkySouL159/RMS/internal/store"
)

// stubStore implements Store in memory and counts calls, so tests can
// assert the no-network laws.
type stubStore struct {
	rows        []store.Row
	selectErr   error
	updateErr   error
	echo        store.Row
	selectCalls int
	updateCalls int
	lastPatch   map[string]any
}

func (s *stubStore) Select(_ context.Context, _ string) ([]store.Row, error) {
	s.selectCalls++
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	out := make([]store.Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *stubStore) Update(_ context.Context, _ string, _ int64, patch map[string]any) (store.Row, error) {
	s.updateCalls++
	s.lastPatch = patch
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.echo.Clone(), nil
}

func num(s string) json.Number { return json.Number(s) }

func lightRow(id, room string, prev, curr any, bill string) store.Row {
	return store.Row{
		"id":               num(id),
		"room_number":      num(room),
		"month":            "Jan",
		"previous_reading": prev,
		"current_reading":  curr,
		"bill_amount":      num(bill),
	}
}

func loadedLight(t *testing.T, rows ...store.Row) (*Controller, *stubStore) {
	t.Helper()
	st := &stubStore{rows: rows}
	ctrl := NewController(LightBill(), st)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ctrl, st
}

func TestLoadSortsFiltersAndDerives(t *testing.T) {
	ctrl, _ := loadedLight(t,
		lightRow("3", "7", "100", num("120"), "300"),
		lightRow("1", "2", "10", num("15"), "100"),
		// missing numeric room identifier: dropped
		store.Row{"id": num("4"), "room_number": "n/a", "previous_reading": "1", "current_reading": num("2")},
		// missing id: dropped
		store.Row{"room_number": num("1"), "previous_reading": "1", "current_reading": num("2")},
		lightRow("2", "5", "50", num("60"), "200"),
	)

	rows := ctrl.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after filtering, got %d", len(rows))
	}
	wantOrder := []string{"2", "5", "7"}
	for i, r := range rows {
		if got := r.String("room_number"); got != wantOrder[i] {
			t.Errorf("row %d: room_number = %q, want %q", i, got, wantOrder[i])
		}
	}
	if got := rows[0].String("point"); got != "5.00" {
		t.Errorf("point = %q, want %q", got, "5.00")
	}
	if got := rows[2].String("point"); got != "20.00" {
		t.Errorf("point = %q, want %q", got, "20.00")
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	ctrl, st := loadedLight(t,
		lightRow("1", "2", "10", num("15"), "100"),
		lightRow("2", "1", "5", num("9"), "50"),
	)
	first := ctrl.Rows()
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	second := ctrl.Rows()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("row sets differ between loads:\n%v\n%v", first, second)
	}
	if st.selectCalls != 2 {
		t.Errorf("selectCalls = %d, want 2", st.selectCalls)
	}
}

func TestLoadFailureIsTerminal(t *testing.T) {
	st := &stubStore{selectErr: errors.New("boom")}
	ctrl := NewController(LightBill(), st)
	if err := ctrl.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	snap := ctrl.Snapshot()
	if snap.Err == "" {
		t.Error("expected error recorded in snapshot")
	}
	if len(snap.Rows) != 0 {
		t.Errorf("expected no partial rows, got %d", len(snap.Rows))
	}
	if snap.Loading {
		t.Error("failed load must not report loading")
	}
}

func TestCommitIdenticalTrimmedTextIsInert(t *testing.T) {
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	before := ctrl.Rows()

	// Whitespace differences do not count as a change.
	if _, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", " 15 "); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	if st.updateCalls != 0 {
		t.Errorf("updateCalls = %d, want 0", st.updateCalls)
	}
	if !reflect.DeepEqual(before, ctrl.Rows()) {
		t.Error("row set mutated by a no-op commit")
	}
	if ctrl.EditTarget() != nil {
		t.Error("edit target not cleared after no-op commit")
	}
}

func TestCommitComparisonIsLiteralNotNumeric(t *testing.T) {
	echo := lightRow("1", "2", "10", num("15.00"), "100")
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	st.echo = echo

	// "15.00" equals 15 numerically but differs as text, so it commits.
	if _, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "15.00"); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	if st.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", st.updateCalls)
	}
}

func TestCommitReplacesRowWithServerEchoAndRederives(t *testing.T) {
	// Scenario: point 5.00 -> edit current_reading to 20 -> echo carries
	// the confirmed base fields -> point recomputed as 10.00.
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	if got := ctrl.Rows()[0].String("point"); got != "5.00" {
		t.Fatalf("precondition point = %q, want 5.00", got)
	}

	st.echo = store.Row{
		"id":               num("1"),
		"room_number":      num("2"),
		"month":            "Jan",
		"previous_reading": "10",
		"current_reading":  num("20"),
		"bill_amount":      num("100"),
	}
	row, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "20")
	if err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	if got := row.String("point"); got != "10.00" {
		t.Errorf("point = %q, want 10.00", got)
	}
	if got := ctrl.Rows()[0].String("current_reading"); got != "20" {
		t.Errorf("current_reading = %q, want 20", got)
	}
	if _, ok := st.lastPatch["current_reading"]; !ok {
		t.Error("patch missing edited column")
	}
	if _, ok := st.lastPatch["point"]; ok {
		t.Error("point must never be written to the remote store")
	}
	if ctrl.EditTarget() != nil {
		t.Error("edit target not cleared after commit")
	}

	// A realtime DELETE for the same id then removes it from the set.
	ctrl.ApplyEvent("DELETE", nil, store.Row{"id": num("1")})
	if len(ctrl.Rows()) != 0 {
		t.Error("row not removed by DELETE event")
	}
}

func TestCommitFailureRevertsOptimisticValue(t *testing.T) {
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	st.updateErr = errors.New("remote says no")

	_, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "99")
	if err == nil {
		t.Fatal("expected commit error")
	}
	row := ctrl.Rows()[0]
	if got := row.String("current_reading"); got != "15" {
		t.Errorf("current_reading = %q, want reverted 15", got)
	}
	if got := row.String("point"); got != "5.00" {
		t.Errorf("point = %q, want reverted 5.00", got)
	}
	if ctrl.EditTarget() != nil {
		t.Error("edit target not cleared after failed commit")
	}
}

func TestCommitRowGoneSurfacesAsRowGone(t *testing.T) {
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	st.updateErr = store.ErrRowGone

	_, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "99")
	if !errors.Is(err, store.ErrRowGone) {
		t.Fatalf("err = %v, want ErrRowGone", err)
	}
}

func TestCommitUnknownRow(t *testing.T) {
	ctrl, st := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	_, err := ctrl.CommitEdit(context.Background(), 42, "current_reading", "99")
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("err = %v, want ErrRowNotFound", err)
	}
	if st.updateCalls != 0 {
		t.Error("commit against unknown row must not reach the store")
	}
}

func TestBeginEditRejectsNonEditableColumns(t *testing.T) {
	ctrl, _ := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	for _, col := range []string{"room_number", "month", "point", "bill_amount", "no_such_column"} {
		if err := ctrl.BeginEdit(1, col); !errors.Is(err, ErrColumnNotEditable) {
			t.Errorf("BeginEdit(%q) err = %v, want ErrColumnNotEditable", col, err)
		}
		if ctrl.EditTarget() != nil {
			t.Errorf("BeginEdit(%q) changed the edit target", col)
		}
	}
	if err := ctrl.BeginEdit(1, "current_reading"); err != nil {
		t.Fatalf("BeginEdit editable: %v", err)
	}
	if got := ctrl.EditTarget(); got == nil || got.Column != "current_reading" || got.RowID != 1 {
		t.Errorf("edit target = %+v", got)
	}
}

// blockingStore parks Update until released so tests can observe the
// in-flight commit state.
type blockingStore struct {
	stubStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Update(ctx context.Context, table string, id int64, patch map[string]any) (store.Row, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.stubStore.Update(ctx, table, id, patch)
}

func TestBeginEditRejectedWhileCommitInFlight(t *testing.T) {
	bst := &blockingStore{
		stubStore: stubStore{
			rows: []store.Row{lightRow("1", "2", "10", num("15"), "100")},
			echo: lightRow("1", "2", "10", num("20"), "100"),
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(LightBill(), bst)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "20")
		done <- err
	}()
	<-bst.entered

	if err := ctrl.BeginEdit(1, "previous_reading"); !errors.Is(err, ErrEditBusy) {
		t.Errorf("BeginEdit during commit err = %v, want ErrEditBusy", err)
	}

	close(bst.release)
	if err := <-done; err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	if err := ctrl.BeginEdit(1, "previous_reading"); err != nil {
		t.Errorf("BeginEdit after commit settled: %v", err)
	}
}

func TestApplyEventUpdateIsIdempotent(t *testing.T) {
	ctrl, _ := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	ev := store.Row{
		"id":               num("1"),
		"room_number":      num("2"),
		"month":            "Jan",
		"previous_reading": "10",
		"current_reading":  num("30"),
		"bill_amount":      num("100"),
	}
	ctrl.ApplyEvent("UPDATE", ev, nil)
	once := ctrl.Rows()
	ctrl.ApplyEvent("UPDATE", ev, nil)
	twice := ctrl.Rows()
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("double delivery diverged:\n%v\n%v", once, twice)
	}
	if got := once[0].String("point"); got != "20.00" {
		t.Errorf("point = %q, want 20.00 (derived from event payload)", got)
	}
}

func TestApplyEventStaleAndAbsent(t *testing.T) {
	ctrl, _ := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	before := ctrl.Rows()

	// UPDATE for a row we never held: inert.
	ctrl.ApplyEvent("UPDATE", lightRow("9", "9", "1", num("2"), "5"), nil)
	// DELETE for an absent row: inert.
	ctrl.ApplyEvent("DELETE", nil, store.Row{"id": num("9")})
	if !reflect.DeepEqual(before, ctrl.Rows()) {
		t.Error("stale events mutated the row set")
	}

	// INSERT appends in room order.
	ctrl.ApplyEvent("INSERT", lightRow("5", "1", "0", num("3"), "10"), nil)
	rows := ctrl.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after insert, got %d", len(rows))
	}
	if got := rows[0].String("room_number"); got != "1" {
		t.Errorf("insert not sorted into place, first room = %q", got)
	}

	// Duplicate INSERT must not duplicate the row.
	ctrl.ApplyEvent("INSERT", lightRow("5", "1", "0", num("3"), "10"), nil)
	if got := len(ctrl.Rows()); got != 2 {
		t.Errorf("duplicate insert grew the set to %d rows", got)
	}
}

func TestDeleteEventCancelsEditOnThatRow(t *testing.T) {
	ctrl, _ := loadedLight(t,
		lightRow("1", "2", "10", num("15"), "100"),
		lightRow("2", "3", "0", num("7"), "50"),
	)
	if err := ctrl.BeginEdit(1, "current_reading"); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}

	// Deleting an unrelated row leaves the session alone.
	ctrl.ApplyEvent("DELETE", nil, store.Row{"id": num("2")})
	if got := ctrl.EditTarget(); got == nil || got.RowID != 1 {
		t.Fatalf("edit target after unrelated delete = %+v", got)
	}

	// Deleting the edited row discards the session: there is nothing
	// left to commit into.
	ctrl.ApplyEvent("DELETE", nil, store.Row{"id": num("1")})
	if got := ctrl.EditTarget(); got != nil {
		t.Errorf("edit target survived deletion of its row: %+v", got)
	}
}

func TestApplyEventNotifiesObserver(t *testing.T) {
	ctrl, _ := loadedLight(t, lightRow("1", "2", "10", num("15"), "100"))
	var seen []Change
	ctrl.OnChange(func(ch Change) { seen = append(seen, ch) })

	ctrl.ApplyEvent("UPDATE", lightRow("1", "2", "10", num("30"), "100"), nil)
	ctrl.ApplyEvent("UPDATE", lightRow("9", "9", "1", num("2"), "5"), nil) // inert
	ctrl.ApplyEvent("DELETE", nil, store.Row{"id": num("1")})

	if len(seen) != 2 {
		t.Fatalf("observed %d changes, want 2 (inert events must not notify)", len(seen))
	}
	if seen[0].Type != ChangeUpdate || seen[0].ID != 1 {
		t.Errorf("first change = %+v", seen[0])
	}
	if seen[1].Type != ChangeDelete || seen[1].Row != nil {
		t.Errorf("second change = %+v", seen[1])
	}
}

func TestTotalsTrackCurrentState(t *testing.T) {
	ctrl, st := loadedLight(t,
		lightRow("1", "2", "10", num("15"), "100"),
		lightRow("2", "3", "0", num("7.5"), "50.5"),
	)
	bill, points := ctrl.Totals()
	if got := bill.StringFixed(0); got != "151" {
		t.Errorf("total bill = %q, want 151", got)
	}
	if got := points.StringFixed(0); got != "13" {
		t.Errorf("total points = %q, want 13 (5.00 + 7.50 rounded)", got)
	}

	// Totals reflect a confirmed edit immediately.
	st.echo = lightRow("1", "2", "10", num("25"), "100")
	if _, err := ctrl.CommitEdit(context.Background(), 1, "current_reading", "25"); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	_, points = ctrl.Totals()
	if got := points.StringFixed(2); got != "22.50" {
		t.Errorf("total points after edit = %q, want 22.50", got)
	}
}

func TestPaymentRemainingDerivedAndPatched(t *testing.T) {
	st := &stubStore{rows: []store.Row{{
		"id":           num("1"),
		"room_no":      num("4"),
		"month":        "Jan",
		"light_bill":   num("120"),
		"total_amount": num("1500"),
		"paid_amount":  num("500"),
	}}}
	ctrl := NewController(Payment(), st)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := ctrl.Rows()[0].String("remaining"); got != "1000" {
		t.Errorf("remaining = %q, want 1000", got)
	}

	st.echo = store.Row{
		"id":           num("1"),
		"room_no":      num("4"),
		"month":        "Jan",
		"light_bill":   num("120"),
		"total_amount": num("1500"),
		"paid_amount":  num("900"),
		"remaining":    num("600"),
	}
	row, err := ctrl.CommitEdit(context.Background(), 1, "paid_amount", "900")
	if err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}
	if got := st.lastPatch["remaining"]; got != "600" {
		t.Errorf("patch remaining = %v, want \"600\"", got)
	}
	if got := row.String("remaining"); got != "600" {
		t.Errorf("remaining after echo = %q, want 600", got)
	}
}
