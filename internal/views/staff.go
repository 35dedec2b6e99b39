package views

import (
	"sort"

	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

const topPositions = 10

type StaffView struct {
	Totals       StaffTotals          `json:"totals"`
	ByLocation   []calc.ValueCount    `json:"by_location"`
	TopPositions []calc.ValueCount    `json:"top_positions"`
	Selected     []models.StaffMember `json:"selected,omitempty"`
}

type StaffTotals struct {
	Staff     int `json:"staff"`
	Locations int `json:"locations"`
	Roles     int `json:"roles"`
}

// Staff builds the staff page. Locations are listed smallest first. When the
// selection names locations, Selected lists their members.
func Staff(t *table.Table, c filter.Constraints) *StaffView {
	members := ingest.StaffMembers(t)
	locations := lo.Map(members, func(m models.StaffMember, _ int) string { return m.Location })
	positions := lo.Map(members, func(m models.StaffMember, _ int) string { return m.Position })

	byLoc := calc.ValueCounts(locations)
	sort.SliceStable(byLoc, func(i, j int) bool { return byLoc[i].N < byLoc[j].N })

	v := &StaffView{
		Totals: StaffTotals{
			Staff:     len(members),
			Locations: len(lo.Uniq(lo.Compact(locations))),
			Roles:     len(lo.Uniq(lo.Compact(positions))),
		},
		ByLocation:   byLoc,
		TopPositions: calc.TopN(calc.ValueCounts(positions), topPositions),
	}
	if len(c.Categories) > 0 {
		v.Selected = members
	}
	return v
}
