package views

import (
	"database/sql"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

type WellsView struct {
	Summary     WellsSummary  `json:"summary"`
	Wells       []WellStats   `json:"wells"`
	Rates       []WellRate    `json:"rates"`
	Correlation Correlation   `json:"correlation"`
	Anomalies   []WellAnomaly `json:"anomalies"`
}

type WellsSummary struct {
	SelectedWells  int        `json:"selected_wells"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	AvgDepthChange *float64   `json:"avg_depth_change,omitempty"`
	MaxElevation   *float64   `json:"max_elevation,omitempty"`
}

type WellStats struct {
	WellID                   string   `json:"well_id"`
	Depth                    Stats    `json:"depth"`
	Elevation                Stats    `json:"elevation"`
	MaxDaysSinceInstallation *float64 `json:"max_days_since_installation,omitempty"`
}

type WellRate struct {
	WellID        string   `json:"well_id"`
	Measurements  int      `json:"measurements"`
	Days          int      `json:"days"`
	DepthRate     *float64 `json:"depth_rate"`
	ElevationRate *float64 `json:"elevation_rate"`
	Frequency     float64  `json:"frequency"`
}

type Correlation struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

type WellAnomaly struct {
	WellID string    `json:"well_id"`
	Date   time.Time `json:"date"`
	Depth  float64   `json:"depth"`
	Z      float64   `json:"z"`
}

// Wells computes the relief well page over a filtered table.
func Wells(t *table.Table, c filter.Constraints, opts Options) (*WellsView, []calc.Warning) {
	readings := ingest.ReliefWellReadings(t)
	var warns []calc.Warning
	v := &WellsView{}

	v.Summary = wellsSummary(readings, c)

	byWell := lo.GroupBy(readings, func(r models.ReliefWellReading) string { return r.WellID })
	ids := lo.Keys(byWell)
	sort.Strings(ids)
	for _, id := range ids {
		rs := byWell[id]
		days := calc.Describe(lo.Map(rs, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.DaysSinceInstallation }))
		v.Wells = append(v.Wells, WellStats{
			WellID:                   id,
			Depth:                    toStats(calc.Describe(lo.Map(rs, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.Depth }))),
			Elevation:                toStats(calc.Describe(lo.Map(rs, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.Elevation }))),
			MaxDaysSinceInstallation: ptr(days.Max),
		})
	}

	depthRates, w := calc.Rates(lo.Map(readings, func(r models.ReliefWellReading, _ int) calc.Obs {
		return calc.Obs{Key: r.WellID, Date: r.Date, Value: r.DepthChange}
	}), opts.Rate)
	warns = append(warns, w...)
	elevRates, w := calc.Rates(lo.Map(readings, func(r models.ReliefWellReading, _ int) calc.Obs {
		return calc.Obs{Key: r.WellID, Date: r.Date, Value: r.ElevationChange}
	}), opts.Rate)
	warns = append(warns, w...)
	elevByWell := lo.KeyBy(elevRates, func(r calc.Rate) string { return r.Key })
	for _, dr := range depthRates {
		wr := WellRate{
			WellID:       dr.Key,
			Measurements: dr.Count,
			Days:         dr.Days,
			DepthRate:    ptr(dr.PerDay),
			Frequency:    dr.Frequency,
		}
		if er, ok := elevByWell[dr.Key]; ok {
			wr.ElevationRate = ptr(er.PerDay)
		}
		v.Rates = append(v.Rates, wr)
	}

	v.Correlation = correlate(t)

	depths := lo.Map(readings, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.Depth })
	anomalies, w := calc.DetectAnomalies(depths, opts.AnomalyThreshold)
	for i := range w {
		w[i].Group = "Depth"
	}
	warns = append(warns, w...)
	for i, a := range anomalies {
		if a.Flagged {
			r := readings[i]
			v.Anomalies = append(v.Anomalies, WellAnomaly{WellID: r.WellID, Date: r.Date, Depth: r.Depth.Float64, Z: a.Z.Float64})
		}
	}
	return v, warns
}

func wellsSummary(readings []models.ReliefWellReading, c filter.Constraints) WellsSummary {
	var s WellsSummary
	if len(c.Entities) > 0 {
		s.SelectedWells = len(lo.UniqBy(c.Entities, filter.Fold))
	} else {
		s.SelectedWells = len(lo.UniqBy(readings, func(r models.ReliefWellReading) string { return r.WellID }))
	}

	from, to := c.From, c.To
	for _, r := range readings {
		if c.From.IsZero() && (from.IsZero() || r.Date.Before(from)) {
			from = r.Date
		}
		if c.To.IsZero() && (to.IsZero() || r.Date.After(to)) {
			to = r.Date
		}
	}
	if !from.IsZero() {
		s.From = &from
	}
	if !to.IsZero() {
		s.To = &to
	}

	s.AvgDepthChange = ptr(calc.Describe(lo.Map(readings, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.DepthChange })).Mean)
	s.MaxElevation = ptr(calc.Describe(lo.Map(readings, func(r models.ReliefWellReading, _ int) sql.NullFloat64 { return r.Elevation })).Max)
	return s
}

// correlate builds the correlation matrix across every numeric column.
func correlate(t *table.Table) Correlation {
	var names []string
	var cols [][]sql.NullFloat64
	for _, col := range t.Columns {
		if col.Kind != table.KindNumber {
			continue
		}
		names = append(names, col.Name)
		cols = append(cols, column(t, col.Name))
	}
	m := calc.Correlate(names, cols)
	out := Correlation{Columns: m.Columns, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = lo.Map(row, func(n sql.NullFloat64, _ int) *float64 { return ptr(n) })
	}
	return out
}

func column(t *table.Table, name string) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, t.Len())
	for i := range t.Rows {
		if v := t.Value(i, name); v.Valid && v.Kind == table.KindNumber {
			out[i] = sql.NullFloat64{Float64: v.Num, Valid: true}
		}
	}
	return out
}
