// Package views builds per-page view models: filter the cleaned table, then
// compute the page's metrics.
package views

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/metrics"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

// NoDataNotice is shown instead of a page when the filters match nothing.
const NoDataNotice = "No data available for the selected filters"

// DefaultMaxYear caps the water level yearly series.
const DefaultMaxYear = 2025

// Options tunes the metric computations.
type Options struct {
	AnomalyThreshold float64
	Rate             calc.RateOptions
	MaxYear          int
}

func DefaultOptions() Options {
	return Options{
		AnomalyThreshold: calc.DefaultAnomalyThreshold,
		Rate:             calc.DefaultRateOptions(),
		MaxYear:          DefaultMaxYear,
	}
}

// Page is the envelope every domain view is returned in. Data holds the
// domain-specific view model and is nil when Empty is set.
type Page struct {
	Domain   models.Domain  `json:"domain"`
	Title    string         `json:"title"`
	Rows     int            `json:"rows"`
	Options  filter.Options `json:"options"`
	Empty    bool           `json:"empty,omitempty"`
	Notice   string         `json:"notice,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Data     any            `json:"data,omitempty"`
}

// Filtered applies the constraints to a loaded table. The loaded table is
// never modified.
func Filtered(l *ingest.Loaded, c filter.Constraints) (*table.Table, error) {
	return filter.Apply(l.Table, l.Definition.Roles, c)
}

// Build filters a loaded domain and computes its page. An empty selection is
// not an error: the page comes back with Empty set and no metrics. A panic
// while computing is recovered and returned as an error so one domain's data
// cannot take down the caller.
func Build(l *ingest.Loaded, c filter.Constraints, opts Options) (page *Page, err error) {
	def := l.Definition
	page = &Page{Domain: def.Domain, Title: def.Title}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("view %s: %v", def.Domain, r)
			page = nil
		}
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
			log.Printf("views: %v", err)
		case page.Empty:
			outcome = "empty"
		}
		metrics.ViewBuilds.WithLabelValues(string(def.Domain), outcome).Inc()
	}()

	page.Options = filter.OptionsFor(l.Table, def.Roles)
	for _, w := range l.Warnings {
		page.Warnings = append(page.Warnings, w.String())
	}

	t, err := Filtered(l, c)
	if errors.Is(err, filter.ErrEmptyResult) {
		page.Empty = true
		page.Notice = NoDataNotice
		return page, nil
	}
	if err != nil {
		return nil, err
	}
	page.Rows = t.Len()

	var warns []calc.Warning
	switch {
	case def.Domain == models.ReliefWells:
		page.Data, warns = Wells(t, c, opts)
	case def.Domain == models.Rainfall:
		page.Data = Rainfall(t)
	case def.Domain == models.Security:
		page.Data = Security(t)
	case def.Domain == models.WaterLevel:
		page.Data, warns = WaterLevel(t, opts)
	case def.Domain == models.Staff:
		page.Data = Staff(t, c)
	case def.Domain.IsFacility():
		page.Data = Facilities(t)
	default:
		return nil, fmt.Errorf("no view for domain %q", def.Domain)
	}
	for _, w := range warns {
		log.Printf("views: %s: %s", def.Domain, w)
		page.Warnings = append(page.Warnings, w.String())
	}
	return page, nil
}

// Stats is calc.Summary with JSON-friendly optional numbers.
type Stats struct {
	Count int      `json:"count"`
	Sum   *float64 `json:"sum,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
	Std   *float64 `json:"std,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

func toStats(s calc.Summary) Stats {
	return Stats{Count: s.Count, Sum: ptr(s.Sum), Mean: ptr(s.Mean), Std: ptr(s.Std), Min: ptr(s.Min), Max: ptr(s.Max)}
}

// Point is one bucket of a time series.
type Point struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Value *float64  `json:"value"`
	Count int       `json:"count"`
}

func toPoints(bs []calc.Bucket) []Point {
	return lo.Map(bs, func(b calc.Bucket, _ int) Point {
		return Point{Label: b.Label, Start: b.Start, Value: ptr(b.Value), Count: b.Count}
	})
}

func ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func describe(vals []float64) Stats {
	return toStats(calc.Describe(lo.Map(vals, func(f float64, _ int) sql.NullFloat64 {
		return sql.NullFloat64{Float64: f, Valid: true}
	})))
}
