package views

import (
	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

// Security worksheet categories.
const (
	CategorySummary   = "INCIDENT SUMMARY"
	CategoryBreakdown = "INCIDENT BREAKDOWN"
	CategoryNotable   = "NOTABLE INCIDENTS"
)

type SecurityView struct {
	KeyMetrics KeyMetrics        `json:"key_metrics"`
	Breakdown  []IncidentType    `json:"breakdown"`
	Timeline   []Point           `json:"timeline"`
	Locations  []calc.ValueCount `json:"locations"`
}

type KeyMetrics struct {
	TotalIncidents float64 `json:"total_incidents"`
	Fatalities     float64 `json:"fatalities"`
	Abductions     float64 `json:"abductions"`
}

type IncidentType struct {
	Type  string  `json:"type"`
	Count float64 `json:"count"`
}

func Security(t *table.Table) *SecurityView {
	incidents := ingest.SecurityIncidents(t)
	v := &SecurityView{
		KeyMetrics: KeyMetrics{
			TotalIncidents: metric(incidents, CategorySummary, "Total Incidents"),
			Fatalities:     metric(incidents, CategorySummary, "Fatalities"),
			Abductions:     metric(incidents, CategorySummary, "Abductions"),
		},
	}

	for _, inc := range incidents {
		if inc.Category == CategoryBreakdown {
			v.Breakdown = append(v.Breakdown, IncidentType{Type: inc.SubCategory, Count: inc.Count})
		}
	}

	notable := lo.FilterMap(incidents, func(inc models.SecurityIncident, _ int) (calc.Point, bool) {
		return calc.Point{Date: inc.Date.Time}, inc.Category == CategoryNotable && inc.Date.Valid
	})
	v.Timeline = toPoints(calc.Aggregate(notable, calc.Monthly, calc.Count))

	v.Locations = calc.ValueCounts(lo.FilterMap(incidents, func(inc models.SecurityIncident, _ int) (string, bool) {
		return inc.Location.String, inc.Location.Valid
	}))
	return v
}

// metric returns the count of the first row matching category and
// sub-category, or 0.
func metric(incidents []models.SecurityIncident, category, sub string) float64 {
	inc, ok := lo.Find(incidents, func(inc models.SecurityIncident) bool {
		return inc.Category == category && inc.SubCategory == sub
	})
	if !ok {
		return 0
	}
	return inc.Count
}
