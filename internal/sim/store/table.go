// Package store implements a struct-of-arrays entity table keyed by a unique
// int32 id.
//
// Rows live in parallel int32 columns. Deletion swaps the last row into the
// freed slot, so row order is insertion order only until the first delete;
// callers must address entities by id, never by row position.
package store

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrColumnLength  = errors.New("column length mismatch")
	ErrUnknownField  = errors.New("unknown field")
)

type UnknownEntityError struct {
	Table string
	ID    int32
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("%s: unknown entity %d", e.Table, e.ID)
}

func (e *UnknownEntityError) Unwrap() error { return ErrUnknownEntity }

type DuplicateIDError struct {
	Table string
	ID    int32
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: duplicate id %d", e.Table, e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// Field is a column ordinal within a Schema.
type Field int

// Schema names the int32 columns of a table. The id column is implicit.
type Schema struct {
	Name   string
	Fields []string
}

func (s Schema) FieldName(f Field) string {
	if f < 0 || int(f) >= len(s.Fields) {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return s.Fields[f]
}

// FieldByName resolves a column by name.
func (s Schema) FieldByName(name string) (Field, bool) {
	for i, n := range s.Fields {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Columns is a partial set of columns keyed by field. Used for bulk insert
// and bulk alter; every present column must match the id count.
type Columns map[Field][]int32

type Table struct {
	schema Schema
	ids    []int32
	cols   [][]int32
	index  map[int32]int
}

func New(schema Schema) *Table {
	return &Table{
		schema: schema,
		cols:   make([][]int32, len(schema.Fields)),
		index:  make(map[int32]int),
	}
}

func (t *Table) Schema() Schema { return t.schema }
func (t *Table) Len() int       { return len(t.ids) }

// IDs returns the live id column. It is invalidated by any mutation.
func (t *Table) IDs() []int32 { return t.ids }

// Col returns the live column for f. It is invalidated by any mutation.
func (t *Table) Col(f Field) []int32 { return t.cols[f] }

func (t *Table) Has(id int32) bool {
	_, ok := t.index[id]
	return ok
}

func (t *Table) unknown(id int32) error {
	return &UnknownEntityError{Table: t.schema.Name, ID: id}
}

func (t *Table) checkColumns(n int, cols Columns) error {
	for f, c := range cols {
		if f < 0 || int(f) >= len(t.cols) {
			return fmt.Errorf("%s: %w: %d", t.schema.Name, ErrUnknownField, int(f))
		}
		if len(c) != n {
			return fmt.Errorf("%s.%s: %w: got %d want %d", t.schema.Name, t.schema.FieldName(f), ErrColumnLength, len(c), n)
		}
	}
	return nil
}

// InsertBulk appends one row per id and returns the row index of the first
// inserted row. Columns absent from cols are zero-filled. The table is left
// unchanged on error.
func (t *Table) InsertBulk(ids []int32, cols Columns) (int, error) {
	if err := t.checkColumns(len(ids), cols); err != nil {
		return 0, err
	}
	seen := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := t.index[id]; ok {
			return 0, &DuplicateIDError{Table: t.schema.Name, ID: id}
		}
		if _, ok := seen[id]; ok {
			return 0, &DuplicateIDError{Table: t.schema.Name, ID: id}
		}
		seen[id] = struct{}{}
	}

	start := len(t.ids)
	t.ids = append(t.ids, ids...)
	for f := range t.cols {
		if src, ok := cols[Field(f)]; ok {
			t.cols[f] = append(t.cols[f], src...)
			continue
		}
		t.cols[f] = appendZeros(t.cols[f], len(ids))
	}
	for i, id := range ids {
		t.index[id] = start + i
	}
	return start, nil
}

func appendZeros(dst []int32, n int) []int32 {
	for i := 0; i < n; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// Alter updates the given fields of one existing row.
func (t *Table) Alter(id int32, values map[Field]int32) error {
	row, ok := t.index[id]
	if !ok {
		return t.unknown(id)
	}
	for f := range values {
		if f < 0 || int(f) >= len(t.cols) {
			return fmt.Errorf("%s: %w: %d", t.schema.Name, ErrUnknownField, int(f))
		}
	}
	for f, v := range values {
		t.cols[f][row] = v
	}
	return nil
}

// Set writes a single field of an existing row.
func (t *Table) Set(id int32, f Field, v int32) error {
	row, ok := t.index[id]
	if !ok {
		return t.unknown(id)
	}
	t.cols[f][row] = v
	return nil
}

// Add adds delta to a single field of an existing row.
func (t *Table) Add(id int32, f Field, delta int32) error {
	row, ok := t.index[id]
	if !ok {
		return t.unknown(id)
	}
	t.cols[f][row] += delta
	return nil
}

// AlterBulk updates the given columns for every id. All ids are resolved
// before any write, so an unknown id leaves the table unchanged.
func (t *Table) AlterBulk(ids []int32, cols Columns) error {
	if err := t.checkColumns(len(ids), cols); err != nil {
		return err
	}
	rows, err := t.LookupIndices(ids, nil)
	if err != nil {
		return err
	}
	for f, src := range cols {
		dst := t.cols[f]
		for i, row := range rows {
			dst[row] = src[i]
		}
	}
	return nil
}

// Lookup returns a read view of the row holding id.
func (t *Table) Lookup(id int32) (Row, error) {
	row, ok := t.index[id]
	if !ok {
		return Row{}, t.unknown(id)
	}
	return Row{t: t, row: row}, nil
}

// Get returns one field of the row holding id.
func (t *Table) Get(id int32, f Field) (int32, error) {
	row, ok := t.index[id]
	if !ok {
		return 0, t.unknown(id)
	}
	return t.cols[f][row], nil
}

// LookupIndices resolves ids to row indices, appending to dst.
func (t *Table) LookupIndices(ids []int32, dst []int) ([]int, error) {
	dst = dst[:0]
	for _, id := range ids {
		row, ok := t.index[id]
		if !ok {
			return dst, t.unknown(id)
		}
		dst = append(dst, row)
	}
	return dst, nil
}

// DeleteBulk removes every id by moving the last row into the freed slot.
// Unknown ids fail before any row is removed.
func (t *Table) DeleteBulk(ids []int32) error {
	for _, id := range ids {
		if _, ok := t.index[id]; !ok {
			return t.unknown(id)
		}
	}
	for _, id := range ids {
		row, ok := t.index[id]
		if !ok {
			// Repeated id within the batch: already removed.
			continue
		}
		last := len(t.ids) - 1
		if row != last {
			moved := t.ids[last]
			t.ids[row] = moved
			for f := range t.cols {
				t.cols[f][row] = t.cols[f][last]
			}
			t.index[moved] = row
		}
		t.ids = t.ids[:last]
		for f := range t.cols {
			t.cols[f] = t.cols[f][:last]
		}
		delete(t.index, id)
	}
	return nil
}

// Clear empties the table, keeping column capacity.
func (t *Table) Clear() {
	t.ids = t.ids[:0]
	for f := range t.cols {
		t.cols[f] = t.cols[f][:0]
	}
	clear(t.index)
}

// CopyFrom replaces t's contents with a deep copy of src. The schemas must
// have the same number of fields.
func (t *Table) CopyFrom(src *Table) {
	t.schema = src.schema
	t.ids = append(t.ids[:0], src.ids...)
	if len(t.cols) != len(src.cols) {
		t.cols = make([][]int32, len(src.cols))
	}
	for f := range src.cols {
		t.cols[f] = append(t.cols[f][:0], src.cols[f]...)
	}
	t.index = make(map[int32]int, len(src.index))
	for id, row := range src.index {
		t.index[id] = row
	}
}

func (t *Table) Clone() *Table {
	out := New(t.schema)
	out.CopyFrom(t)
	return out
}

// Each calls fn for every row in current row order.
func (t *Table) Each(fn func(r Row)) {
	for i := range t.ids {
		fn(Row{t: t, row: i})
	}
}

// Row is a read view of a single table row. It is invalidated by any
// mutation of the table.
type Row struct {
	t   *Table
	row int
}

func (r Row) Index() int        { return r.row }
func (r Row) ID() int32         { return r.t.ids[r.row] }
func (r Row) Get(f Field) int32 { return r.t.cols[f][r.row] }
func (r Row) Valid() bool       { return r.t != nil }
func (r Row) Table() *Table     { return r.t }

// Dump is a detached copy of a table's contents.
type Dump struct {
	IDs     []int32
	Columns [][]int32
}

func (t *Table) Dump() Dump {
	d := Dump{IDs: append([]int32(nil), t.ids...), Columns: make([][]int32, len(t.cols))}
	for f := range t.cols {
		d.Columns[f] = append([]int32(nil), t.cols[f]...)
	}
	return d
}

// Load replaces the table's contents with d. The table is left unchanged
// if d does not fit the schema or holds duplicate ids.
func (t *Table) Load(d Dump) error {
	if len(d.Columns) != len(t.cols) {
		return fmt.Errorf("%s: %w: dump has %d columns, schema has %d", t.schema.Name, ErrColumnLength, len(d.Columns), len(t.cols))
	}
	for f, c := range d.Columns {
		if len(c) != len(d.IDs) {
			return fmt.Errorf("%s.%s: %w: got %d want %d", t.schema.Name, t.schema.FieldName(Field(f)), ErrColumnLength, len(c), len(d.IDs))
		}
	}
	index := make(map[int32]int, len(d.IDs))
	for i, id := range d.IDs {
		if _, ok := index[id]; ok {
			return &DuplicateIDError{Table: t.schema.Name, ID: id}
		}
		index[id] = i
	}
	t.ids = append(t.ids[:0], d.IDs...)
	for f := range t.cols {
		t.cols[f] = append(t.cols[f][:0], d.Columns[f]...)
	}
	t.index = index
	return nil
}
