package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridhall/ghatz/internal/table"
)

// Field declares one typed column of a worksheet.
type Field struct {
	Name     string
	Kind     table.Kind
	Aliases  []string
	Required bool
	Order    DateOrder
	Case     CaseMode
	// Derived fields are computed after cleaning. They are read from the
	// source when present (re-cleaning an export) and never required.
	Derived bool
}

// Schema is the fixed set of fields a worksheet is cleaned into.
type Schema struct {
	Worksheet string
	Fields    []Field
}

func (s Schema) Columns() []table.Column {
	cols := make([]table.Column, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = table.Column{Name: f.Name, Kind: f.Kind}
	}
	return cols
}

// SchemaError reports required columns absent from a worksheet header.
type SchemaError struct {
	Worksheet string
	Missing   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("worksheet %s: missing required columns: %s", e.Worksheet, strings.Join(e.Missing, ", "))
}

// Report summarizes a clean pass. Individual dropped rows are not listed.
type Report struct {
	Worksheet string         `json:"worksheet"`
	RowsIn    int            `json:"rows_in"`
	RowsKept  int            `json:"rows_kept"`
	Dropped   map[string]int `json:"dropped,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

func (r Report) RowsDropped() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *Report) drop(reason string) {
	if r.Dropped == nil {
		r.Dropped = make(map[string]int)
	}
	r.Dropped[reason]++
}

// Clean coerces raw records into a typed table following schema. Rows whose
// required fields are missing or unparsable are excluded and counted in the
// report. The same input always yields the same table.
func Clean(records []table.Record, schema Schema) (*table.Table, Report, error) {
	report := Report{Worksheet: schema.Worksheet, RowsIn: len(records)}
	t := table.New(schema.Columns())
	if len(records) == 0 {
		report.Warnings = append(report.Warnings, "worksheet has no rows")
		return t, report, nil
	}

	keys, err := resolveHeaders(records, schema, &report)
	if err != nil {
		return nil, report, err
	}

	for _, rec := range records {
		row := make(table.Row, len(schema.Fields))
		keep := true
		for i, f := range schema.Fields {
			var raw any
			if keys[i] != "" {
				raw = rec[keys[i]]
			}
			row[i] = coerce(raw, f)
			if f.Required && !row[i].Valid {
				report.drop(f.Name + ": missing or invalid")
				keep = false
				break
			}
		}
		if keep {
			t.Rows = append(t.Rows, row)
		}
	}
	report.RowsKept = t.Len()
	return t, report, nil
}

func coerce(raw any, f Field) table.Value {
	switch f.Kind {
	case table.KindDate:
		if d, ok := ParseDate(raw, f.Order); ok {
			return table.Date(d)
		}
	case table.KindNumber:
		if n, ok := ParseNumber(raw); ok {
			return table.Number(n)
		}
	default:
		if s, ok := NormalizeText(raw, f.Case); ok {
			return table.Text(s)
		}
	}
	return table.Missing(f.Kind)
}

// resolveHeaders maps each schema field to the record key that carries it.
// An empty key means the column is absent.
func resolveHeaders(records []table.Record, schema Schema, report *Report) ([]string, error) {
	byNorm := make(map[string]string)
	var raw []string
	for _, rec := range records {
		for k := range rec {
			raw = append(raw, k)
		}
	}
	sort.Strings(raw)
	for _, k := range raw {
		n := normalizeHeader(k)
		if _, ok := byNorm[n]; !ok {
			byNorm[n] = k
		}
	}

	keys := make([]string, len(schema.Fields))
	var missing []string
	for i, f := range schema.Fields {
		for _, name := range append([]string{f.Name}, f.Aliases...) {
			if k, ok := byNorm[normalizeHeader(name)]; ok {
				keys[i] = k
				break
			}
		}
		if keys[i] != "" || f.Derived {
			continue
		}
		if f.Required {
			missing = append(missing, f.Name)
			continue
		}
		report.Warnings = append(report.Warnings, fmt.Sprintf("column %q not found", f.Name))
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Worksheet: schema.Worksheet, Missing: missing}
	}
	return keys, nil
}
