package store

import (
	"errors"
	"testing"
)

const (
	fX Field = iota
	fY
	fHP
)

var testSchema = Schema{Name: "bodies", Fields: []string{"x", "y", "hp"}}

func seed(t *testing.T, n int) *Table {
	t.Helper()
	tb := New(testSchema)
	ids := make([]int32, n)
	xs := make([]int32, n)
	ys := make([]int32, n)
	for i := 0; i < n; i++ {
		ids[i] = int32(100 + i)
		xs[i] = int32(i)
		ys[i] = int32(2 * i)
	}
	start, err := tb.InsertBulk(ids, Columns{fX: xs, fY: ys})
	if err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	if start != 0 {
		t.Fatalf("start: got %d want 0", start)
	}
	return tb
}

func TestInsertLookup_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 7, 64} {
		tb := seed(t, n)
		if tb.Len() != n {
			t.Fatalf("n=%d: len got %d", n, tb.Len())
		}
		for i := 0; i < n; i++ {
			r, err := tb.Lookup(int32(100 + i))
			if err != nil {
				t.Fatalf("n=%d: Lookup(%d): %v", n, 100+i, err)
			}
			if r.Get(fX) != int32(i) || r.Get(fY) != int32(2*i) || r.Get(fHP) != 0 {
				t.Fatalf("n=%d id=%d: got x=%d y=%d hp=%d", n, r.ID(), r.Get(fX), r.Get(fY), r.Get(fHP))
			}
		}
	}
}

func TestInsertBulk_ReturnsStartRow(t *testing.T) {
	tb := seed(t, 3)
	start, err := tb.InsertBulk([]int32{7, 8}, Columns{fHP: {10, 20}})
	if err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	if start != 3 {
		t.Fatalf("start: got %d want 3", start)
	}
	if got := tb.Col(fHP)[start+1]; got != 20 {
		t.Fatalf("hp at start+1: got %d want 20", got)
	}
}

func TestInsertBulk_Duplicate(t *testing.T) {
	tb := seed(t, 2)
	_, err := tb.InsertBulk([]int32{5, 100}, nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	_, err = tb.InsertBulk([]int32{9, 9}, nil)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for in-batch repeat, got %v", err)
	}
	if tb.Len() != 2 || tb.Has(5) || tb.Has(9) {
		t.Fatalf("table mutated on failed insert: len=%d", tb.Len())
	}
}

func TestInsertBulk_ColumnLength(t *testing.T) {
	tb := New(testSchema)
	_, err := tb.InsertBulk([]int32{1, 2}, Columns{fX: {1}})
	if !errors.Is(err, ErrColumnLength) {
		t.Fatalf("expected ErrColumnLength, got %v", err)
	}
}

func TestAlterBulk(t *testing.T) {
	tb := seed(t, 4)
	if err := tb.AlterBulk([]int32{101, 103}, Columns{fHP: {5, 6}}); err != nil {
		t.Fatalf("AlterBulk: %v", err)
	}
	if hp, _ := tb.Get(101, fHP); hp != 5 {
		t.Fatalf("hp 101: got %d want 5", hp)
	}
	if hp, _ := tb.Get(103, fHP); hp != 6 {
		t.Fatalf("hp 103: got %d want 6", hp)
	}

	err := tb.AlterBulk([]int32{100, 999}, Columns{fHP: {1, 1}})
	var ue *UnknownEntityError
	if !errors.As(err, &ue) || ue.ID != 999 {
		t.Fatalf("expected UnknownEntityError{999}, got %v", err)
	}
	if hp, _ := tb.Get(100, fHP); hp != 0 {
		t.Fatalf("partial write on failed AlterBulk: hp=%d", hp)
	}

	if err := tb.Alter(102, map[Field]int32{fX: -1}); err != nil {
		t.Fatalf("Alter: %v", err)
	}
	if x, _ := tb.Get(102, fX); x != -1 {
		t.Fatalf("x 102: got %d want -1", x)
	}
	if err := tb.Alter(1, map[Field]int32{fX: 1}); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestDeleteBulk_Completeness(t *testing.T) {
	tb := seed(t, 10)
	del := []int32{100, 105, 109, 103}
	if err := tb.DeleteBulk(del); err != nil {
		t.Fatalf("DeleteBulk: %v", err)
	}
	if got, want := tb.Len(), 6; got != want {
		t.Fatalf("len: got %d want %d", got, want)
	}
	for _, id := range del {
		if _, err := tb.Lookup(id); !errors.Is(err, ErrUnknownEntity) {
			t.Fatalf("Lookup(%d) after delete: %v", id, err)
		}
	}
	for i := 0; i < 10; i++ {
		id := int32(100 + i)
		if id == 100 || id == 105 || id == 109 || id == 103 {
			continue
		}
		r, err := tb.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", id, err)
		}
		if r.Get(fX) != int32(i) || r.Get(fY) != int32(2*i) {
			t.Fatalf("id=%d moved values: x=%d y=%d", id, r.Get(fX), r.Get(fY))
		}
	}
}

func TestDeleteBulk_UnknownLeavesTable(t *testing.T) {
	tb := seed(t, 3)
	if err := tb.DeleteBulk([]int32{100, 42}); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	if tb.Len() != 3 || !tb.Has(100) {
		t.Fatalf("table mutated: len=%d", tb.Len())
	}
}

func TestClear(t *testing.T) {
	tb := seed(t, 5)
	tb.Clear()
	if tb.Len() != 0 || tb.Has(100) {
		t.Fatalf("not cleared: len=%d", tb.Len())
	}
	if _, err := tb.InsertBulk([]int32{100}, Columns{fX: {9}}); err != nil {
		t.Fatalf("reinsert after clear: %v", err)
	}
	if x, _ := tb.Get(100, fX); x != 9 {
		t.Fatalf("x: got %d want 9", x)
	}
}

func TestCopyFrom_Independent(t *testing.T) {
	a := seed(t, 4)
	b := a.Clone()

	if err := b.Set(100, fHP, 77); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.DeleteBulk([]int32{101}); err != nil {
		t.Fatalf("DeleteBulk: %v", err)
	}
	if _, err := b.InsertBulk([]int32{500}, nil); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	if a.Len() != 4 || !a.Has(101) || a.Has(500) {
		t.Fatalf("source ids changed: len=%d", a.Len())
	}
	if hp, _ := a.Get(100, fHP); hp != 0 {
		t.Fatalf("source hp changed: %d", hp)
	}
	if x, _ := a.Get(103, fX); x != 3 {
		t.Fatalf("source x changed: %d", x)
	}
}

func TestLookupIndices(t *testing.T) {
	tb := seed(t, 3)
	rows, err := tb.LookupIndices([]int32{102, 100}, nil)
	if err != nil {
		t.Fatalf("LookupIndices: %v", err)
	}
	if len(rows) != 2 || rows[0] != 2 || rows[1] != 0 {
		t.Fatalf("rows: %v", rows)
	}
	if _, err := tb.LookupIndices([]int32{1}, rows); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestDumpLoad(t *testing.T) {
	a := seed(t, 5)
	if err := a.DeleteBulk([]int32{101}); err != nil {
		t.Fatalf("DeleteBulk: %v", err)
	}
	d := a.Dump()
	d.Columns[fX][0] = 1000 // detached from a

	b := New(testSchema)
	if err := b.Load(d); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if x, _ := a.Get(100, fX); x != 0 {
		t.Fatalf("dump aliases source: x=%d", x)
	}
	if x, _ := b.Get(100, fX); x != 1000 {
		t.Fatalf("loaded x: got %d want 1000", x)
	}
	if b.Len() != 4 || b.Has(101) {
		t.Fatalf("loaded ids: %v", b.IDs())
	}

	bad := Dump{IDs: []int32{1, 1}, Columns: [][]int32{{0, 0}, {0, 0}, {0, 0}}}
	if err := b.Load(bad); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if b.Len() != 4 {
		t.Fatalf("failed Load mutated table: len=%d", b.Len())
	}
}
