package calc

import (
	"database/sql"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// DefaultAnomalyThreshold is the absolute z-score above which a value is
// flagged.
const DefaultAnomalyThreshold = 2.5

type Anomaly struct {
	Z       sql.NullFloat64 `json:"z"`
	Flagged bool            `json:"flagged"`
}

// DetectAnomalies computes population z-scores over the valid values and
// flags |z| > threshold. With fewer than two valid values or zero variance no
// score is defined and nothing is flagged.
func DetectAnomalies(values []sql.NullFloat64, threshold float64) ([]Anomaly, []Warning) {
	out := make([]Anomaly, len(values))
	vals := Floats(values)
	if len(vals) < 2 {
		return out, []Warning{{Metric: "zscore", Reason: "fewer than two values"}}
	}
	mean, _ := stats.Mean(vals)
	sd, err := stats.StandardDeviationPopulation(vals)
	if err != nil || sd == 0 || math.IsNaN(sd) || len(lo.Uniq(vals)) == 1 {
		return out, []Warning{{Metric: "zscore", Reason: "zero variance"}}
	}
	for i, v := range values {
		if !v.Valid {
			continue
		}
		z := (v.Float64 - mean) / sd
		out[i] = Anomaly{Z: null(z), Flagged: math.Abs(z) > threshold}
	}
	return out, nil
}

// Matrix is a symmetric correlation matrix. Cells are missing where fewer
// than two paired values exist or either column is constant.
type Matrix struct {
	Columns []string            `json:"columns"`
	Values  [][]sql.NullFloat64 `json:"values"`
}

// Correlate computes pairwise Pearson correlations using rows where both
// columns are valid.
func Correlate(names []string, cols [][]sql.NullFloat64) Matrix {
	m := Matrix{Columns: names, Values: make([][]sql.NullFloat64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]sql.NullFloat64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pearson(cols[i], cols[j])
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m
}

func pearson(a, b []sql.NullFloat64) sql.NullFloat64 {
	var xs, ys []float64
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k].Valid && b[k].Valid {
			xs = append(xs, a[k].Float64)
			ys = append(ys, b[k].Float64)
		}
	}
	if len(xs) < 2 {
		return sql.NullFloat64{}
	}
	sx, _ := stats.StandardDeviationPopulation(xs)
	sy, _ := stats.StandardDeviationPopulation(ys)
	if sx == 0 || sy == 0 {
		return sql.NullFloat64{}
	}
	r, err := stats.Correlation(xs, ys)
	if err != nil || math.IsNaN(r) {
		return sql.NullFloat64{}
	}
	return null(r)
}
