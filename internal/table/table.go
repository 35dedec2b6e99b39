package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the canonical encoding of a date cell.
const DateLayout = "2006-01-02"

// Record is one raw worksheet row: column name to untyped value.
type Record map[string]any

type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Kind Kind
}

// Value is a single typed cell. Valid is false for a missing value.
type Value struct {
	Kind  Kind
	Str   string
	Num   float64
	Time  time.Time
	Valid bool
}

func Text(s string) Value { return Value{Kind: KindText, Str: s, Valid: true} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f, Valid: true} }
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t, Valid: true} }
func Missing(kind Kind) Value { return Value{Kind: kind} }

// String renders the cleaned value the way it is exported.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Time.Format(DateLayout)
	default:
		return v.Str
	}
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Valid != o.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindDate:
		return v.Time.Equal(o.Time)
	default:
		return v.Str == o.Str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	default:
		return json.Marshal(v.String())
	}
}

type Row []Value

// Table is an ordered collection of typed rows sharing one column layout.
type Table struct {
	Columns []Column
	Rows    []Row
	index   map[string]int
}

func New(cols []Column) *Table {
	t := &Table{Columns: cols}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c.Name] = i
	}
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Col returns the position of a named column.
func (t *Table) Col(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	return i, ok
}

func (t *Table) Append(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Value returns the cell at row i in the named column, or a missing text value
// when the column does not exist.
func (t *Table) Value(i int, name string) Value {
	c, ok := t.Col(name)
	if !ok || i < 0 || i >= len(t.Rows) {
		return Missing(KindText)
	}
	return t.Rows[i][c]
}

// Set replaces the named column's values. values must align with Rows.
func (t *Table) Set(name string, values []Value) error {
	c, ok := t.Col(name)
	if !ok {
		return fmt.Errorf("unknown column %q", name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	for i := range t.Rows {
		t.Rows[i][c] = values[i]
	}
	return nil
}

// Clone returns a deep copy so derived steps never mutate a cached table.
func (t *Table) Clone() *Table {
	out := New(append([]Column(nil), t.Columns...))
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// Where returns a new table with the rows keep accepts, in order.
func (t *Table) Where(keep func(Row) bool) *Table {
	out := New(append([]Column(nil), t.Columns...))
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append(Row(nil), r...))
		}
	}
	return out
}

// SortBy stable-sorts rows by the named columns, ascending. Missing values
// sort last.
func (t *Table) SortBy(names ...string) {
	cols := make([]int, 0, len(names))
	for _, n := range names {
		if c, ok := t.Col(n); ok {
			cols = append(cols, c)
		}
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		for _, c := range cols {
			if d := compare(t.Rows[i][c], t.Rows[j][c]); d != 0 {
				return d < 0
			}
		}
		return false
	})
}

func compare(a, b Value) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
	case KindDate:
		return a.Time.Compare(b.Time)
	default:
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		}
	}
	return 0
}

// Equal reports whether both tables have the same layout and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if !t.Rows[i][j].Equal(o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) MarshalJSON() ([]byte, error) {
	type column struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	cols := make([]column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = column{Name: c.Name, Kind: c.Kind.String()}
	}
	rows := make([]map[string]Value, len(t.Rows))
	for i, r := range t.Rows {
		m := make(map[string]Value, len(r))
		for j, c := range t.Columns {
			m[c.Name] = r[j]
		}
		rows[i] = m
	}
	return json.Marshal(struct {
		Columns []column           `json:"columns"`
		Rows    []map[string]Value `json:"rows"`
	}{cols, rows})
}
