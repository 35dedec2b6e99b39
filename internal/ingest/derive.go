package ingest

import (
	"database/sql"
	"fmt"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/table"
)

// Prepare runs the full cleaning pipeline for a domain: coerce, sort,
// de-duplicate and derive. It is pure and deterministic.
func Prepare(def Definition, records []table.Record) (*table.Table, Report, []calc.Warning, error) {
	t, report, err := Clean(records, def.Schema)
	if err != nil {
		return nil, report, nil, err
	}
	if len(def.SortBy) > 0 {
		t.SortBy(def.SortBy...)
	}
	if def.Dedupe != "" {
		if n := dedupe(t, def.Dedupe); n > 0 {
			for i := 0; i < n; i++ {
				report.drop("duplicate " + def.Dedupe)
			}
			report.Warnings = append(report.Warnings, fmt.Sprintf("%d rows share a %s with an earlier row", n, def.Dedupe))
			report.RowsKept = t.Len()
		}
	}
	var warns []calc.Warning
	if def.Derive != nil && !t.Empty() {
		warns = def.Derive(t)
	}
	return t, report, warns, nil
}

// dedupe keeps the first row for each value of col and returns how many rows
// were removed. Rows with a missing value are kept.
func dedupe(t *table.Table, col string) int {
	c, ok := t.Col(col)
	if !ok {
		return 0
	}
	seen := make(map[string]bool, t.Len())
	kept := t.Rows[:0]
	for _, r := range t.Rows {
		if r[c].Valid {
			k := r[c].String()
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		kept = append(kept, r)
	}
	n := len(t.Rows) - len(kept)
	t.Rows = kept
	return n
}

// Observations reads a keyed, dated numeric column for the calculator.
func Observations(t *table.Table, key, date, value string) []calc.Obs {
	obs := make([]calc.Obs, t.Len())
	for i := range t.Rows {
		obs[i] = calc.Obs{
			Key:   t.Value(i, key).String(),
			Date:  t.Value(i, date).Time,
			Value: nullFloat(t.Value(i, value)),
		}
	}
	return obs
}

func nullFloat(v table.Value) sql.NullFloat64 {
	if !v.Valid || v.Kind != table.KindNumber {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Num, Valid: true}
}

func values(ns []sql.NullFloat64) []table.Value {
	out := make([]table.Value, len(ns))
	for i, n := range ns {
		if n.Valid {
			out[i] = table.Number(n.Float64)
		} else {
			out[i] = table.Missing(table.KindNumber)
		}
	}
	return out
}

func deriveReliefWells(t *table.Table) []calc.Warning {
	var warns []calc.Warning

	days := make([]table.Value, t.Len())
	for i := range t.Rows {
		obs, inst := t.Value(i, ColWellDate), t.Value(i, ColInstalled)
		if obs.Valid && inst.Valid {
			days[i] = table.Number(float64(calc.DaySpan(inst.Time, obs.Time)))
		} else {
			days[i] = table.Missing(table.KindNumber)
		}
	}

	depth := calc.Diff(Observations(t, ColWellID, ColWellDate, ColDepth))
	elev := calc.Diff(Observations(t, ColWellID, ColWellDate, ColElevation))

	changes := Observations(t, ColWellID, ColWellDate, ColDepth)
	for i := range changes {
		changes[i].Value = depth[i]
	}
	cum := calc.CumSum(changes)

	for name, vals := range map[string][]table.Value{
		ColDaysInstalled:   days,
		ColDepthChange:     values(depth),
		ColElevationChange: values(elev),
		ColCumDepthChange:  values(cum),
	} {
		if err := t.Set(name, vals); err != nil {
			warns = append(warns, calc.Warning{Metric: name, Reason: err.Error()})
		}
	}
	return warns
}

func deriveSecurity(t *table.Table) []calc.Warning {
	counts := make([]table.Value, t.Len())
	for i := range t.Rows {
		counts[i] = table.Number(calc.ExtractCount(t.Value(i, ColValue).String()))
	}
	if err := t.Set(ColCount, counts); err != nil {
		return []calc.Warning{{Metric: ColCount, Reason: err.Error()}}
	}
	return nil
}
