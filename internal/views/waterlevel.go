package views

import (
	"database/sql"
	"time"

	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

type WaterLevelView struct {
	Summary     Stats          `json:"summary"`
	Yearly      []Point        `json:"yearly"`
	MonthOfYear []Point        `json:"month_of_year"`
	Anomalies   []LevelAnomaly `json:"anomalies"`
}

type LevelAnomaly struct {
	Date  time.Time `json:"date"`
	Level float64   `json:"level"`
	Z     float64   `json:"z"`
}

func WaterLevel(t *table.Table, opts Options) (*WaterLevelView, []calc.Warning) {
	readings := ingest.WaterLevelReadings(t)
	levels := lo.Map(readings, func(r models.WaterLevelReading, _ int) float64 { return r.ReservoirLevel })
	points := lo.Map(readings, func(r models.WaterLevelReading, _ int) calc.Point {
		return calc.Point{Date: r.Date, Value: sql.NullFloat64{Float64: r.ReservoirLevel, Valid: true}}
	})

	v := &WaterLevelView{Summary: describe(levels)}

	yearly := calc.Aggregate(points, calc.Yearly, calc.Mean)
	if opts.MaxYear > 0 {
		yearly = lo.Filter(yearly, func(b calc.Bucket, _ int) bool { return b.Start.Year() <= opts.MaxYear })
	}
	v.Yearly = toPoints(yearly)
	v.MonthOfYear = toPoints(calc.Aggregate(points, calc.MonthOfYear, calc.Mean))

	anomalies, warns := calc.DetectAnomalies(lo.Map(points, func(p calc.Point, _ int) sql.NullFloat64 { return p.Value }), opts.AnomalyThreshold)
	for i := range warns {
		warns[i].Group = ingest.ColReservoirLevel
	}
	for i, a := range anomalies {
		if a.Flagged {
			v.Anomalies = append(v.Anomalies, LevelAnomaly{Date: readings[i].Date, Level: readings[i].ReservoirLevel, Z: a.Z.Float64})
		}
	}
	return v, warns
}
