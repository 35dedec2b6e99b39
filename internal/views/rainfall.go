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

type RainfallView struct {
	Daily   []RainfallDay `json:"daily"`
	Monthly []BankBucket  `json:"monthly"`
	Yearly  []BankBucket  `json:"yearly"`
	Banks   []BankStats   `json:"banks"`
}

type RainfallDay struct {
	Date      time.Time `json:"date"`
	RightBank *float64  `json:"right_bank"`
	LeftBank  *float64  `json:"left_bank"`
}

// BankBucket holds per-bank sums for one period. Total adds both banks.
type BankBucket struct {
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	RightBank float64   `json:"right_bank"`
	LeftBank  float64   `json:"left_bank"`
	Total     float64   `json:"total"`
}

type BankStats struct {
	Bank  string   `json:"bank"`
	Total float64  `json:"total"`
	Max   *float64 `json:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
}

func Rainfall(t *table.Table) *RainfallView {
	readings := ingest.RainfallReadings(t)
	v := &RainfallView{
		Daily: lo.Map(readings, func(r models.RainfallReading, _ int) RainfallDay {
			return RainfallDay{Date: r.Date, RightBank: ptr(r.RightBank), LeftBank: ptr(r.LeftBank)}
		}),
	}

	right := lo.Map(readings, func(r models.RainfallReading, _ int) calc.Point { return calc.Point{Date: r.Date, Value: r.RightBank} })
	left := lo.Map(readings, func(r models.RainfallReading, _ int) calc.Point { return calc.Point{Date: r.Date, Value: r.LeftBank} })
	v.Monthly = bankBuckets(right, left, calc.Monthly)
	v.Yearly = bankBuckets(right, left, calc.Yearly)

	for _, bank := range []struct {
		name string
		pts  []calc.Point
	}{{ingest.ColRightBank, right}, {ingest.ColLeftBank, left}} {
		s := calc.Describe(lo.Map(bank.pts, func(p calc.Point, _ int) sql.NullFloat64 { return p.Value }))
		v.Banks = append(v.Banks, BankStats{Bank: bank.name, Total: s.Sum.Float64, Max: ptr(s.Max), Mean: ptr(s.Mean)})
	}
	return v
}

// bankBuckets sums both banks per period. Both series carry the same dates so
// their buckets line up.
func bankBuckets(right, left []calc.Point, p calc.Period) []BankBucket {
	rs := calc.Aggregate(right, p, calc.Sum)
	ls := lo.KeyBy(calc.Aggregate(left, p, calc.Sum), func(b calc.Bucket) time.Time { return b.Start })
	return lo.Map(rs, func(b calc.Bucket, _ int) BankBucket {
		out := BankBucket{Label: b.Label, Start: b.Start, RightBank: b.Value.Float64}
		out.LeftBank = ls[b.Start].Value.Float64
		out.Total = out.RightBank + out.LeftBank
		return out
	})
}
