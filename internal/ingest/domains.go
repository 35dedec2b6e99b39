package ingest

import (
	"fmt"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

// Column names of the cleaned tables.
const (
	ColWellID          = "RW_ID"
	ColWellDate        = "Date"
	ColInstalled       = "Date of Installation"
	ColDepth           = "Depth"
	ColElevation       = "Elevation"
	ColX               = "x"
	ColY               = "y"
	ColGroundLevel     = "GROUND LEVEL"
	ColFoundationLevel = "FOUNDATION LEVEL"
	ColTopOfPVC        = "TOP OF PVC LEVEL"
	ColTotalDepth      = "TOTAL DEPTH ( m )"
	ColPVCHeight       = "HEIGHT OF PVC ABOVE G.L"
	ColNTPL            = "NTPL"
	ColDaysInstalled   = "Days Since Installation"
	ColDepthChange     = "Depth Change"
	ColElevationChange = "Elevation Change"
	ColCumDepthChange  = "Cumulative Depth Change"

	ColRainDate  = "date"
	ColRightBank = "rightbank"
	ColLeftBank  = "leftbank"

	ColCategory    = "Category"
	ColSubCategory = "Sub-Category"
	ColValue       = "Value"
	ColIncidentAt  = "Date"
	ColLocation    = "Location"
	ColCount       = "Count"

	ColLevelDate      = "date"
	ColReservoirLevel = "reservoir_level"

	ColName      = "name"
	ColPosition  = "position"
	ColStaffLoc  = "location"
	ColFacLoc    = "location"
	ColFacCat    = "category"
	ColCondition = "condition"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColImage     = "image"
)

// Definition describes how one domain's worksheet becomes a cleaned table.
type Definition struct {
	Domain models.Domain
	Title  string
	Schema Schema
	Roles  filter.Roles
	// SortBy orders the cleaned table before derivation.
	SortBy []string
	// Dedupe keeps only the first row for each value of this column.
	Dedupe string
	// Derive fills Derived fields on the sorted table.
	Derive func(*table.Table) []calc.Warning
}

func num(name string) Field { return Field{Name: name, Kind: table.KindNumber} }

var definitions = map[models.Domain]Definition{
	models.ReliefWells: {
		Domain: models.ReliefWells,
		Title:  "Dam Instrumentation",
		Schema: Schema{
			Worksheet: "ReliefWells",
			Fields: []Field{
				{Name: ColWellID, Kind: table.KindText, Required: true, Case: CaseUpper},
				{Name: ColWellDate, Kind: table.KindDate, Required: true, Order: DayFirst},
				{Name: ColInstalled, Kind: table.KindDate, Order: DayFirst},
				num(ColDepth), num(ColElevation), num(ColX), num(ColY),
				num(ColGroundLevel), num(ColFoundationLevel), num(ColTopOfPVC),
				num(ColTotalDepth), num(ColPVCHeight), num(ColNTPL),
				{Name: ColDaysInstalled, Kind: table.KindNumber, Derived: true},
				{Name: ColDepthChange, Kind: table.KindNumber, Derived: true},
				{Name: ColElevationChange, Kind: table.KindNumber, Derived: true},
				{Name: ColCumDepthChange, Kind: table.KindNumber, Derived: true},
			},
		},
		Roles:  filter.Roles{Date: ColWellDate, Entity: ColWellID},
		SortBy: []string{ColWellID, ColWellDate},
		Derive: deriveReliefWells,
	},
	models.Rainfall: {
		Domain: models.Rainfall,
		Title:  "Weather",
		Schema: Schema{
			Worksheet: "Rainfall",
			Fields: []Field{
				{Name: ColRainDate, Kind: table.KindDate, Required: true, Order: MonthFirst},
				{Name: ColRightBank, Kind: table.KindNumber, Aliases: []string{"righbank"}},
				num(ColLeftBank),
			},
		},
		Roles:  filter.Roles{Date: ColRainDate},
		SortBy: []string{ColRainDate},
		Dedupe: ColRainDate,
	},
	models.Security: {
		Domain: models.Security,
		Title:  "Security",
		Schema: Schema{
			Worksheet: "Security",
			Fields: []Field{
				{Name: ColCategory, Kind: table.KindText, Required: true, Case: CaseUpper},
				{Name: ColSubCategory, Kind: table.KindText, Case: CaseTitle},
				{Name: ColValue, Kind: table.KindText},
				{Name: ColIncidentAt, Kind: table.KindDate, Order: Mixed},
				{Name: ColLocation, Kind: table.KindText, Case: CaseTitle},
				{Name: ColCount, Kind: table.KindNumber, Derived: true},
			},
		},
		Roles:  filter.Roles{Date: ColIncidentAt, Category: ColCategory},
		Derive: deriveSecurity,
	},
	models.WaterLevel: {
		Domain: models.WaterLevel,
		Title:  "Water Level",
		Schema: Schema{
			Worksheet: "guraradamwaterlevel",
			Fields: []Field{
				{Name: ColLevelDate, Kind: table.KindDate, Required: true, Order: MonthFirst},
				{Name: ColReservoirLevel, Kind: table.KindNumber, Required: true},
			},
		},
		Roles:  filter.Roles{Date: ColLevelDate},
		SortBy: []string{ColLevelDate},
		Dedupe: ColLevelDate,
	},
	models.Staff: {
		Domain: models.Staff,
		Title:  "Staff Composition",
		Schema: Schema{
			Worksheet: "Staffcomposition",
			Fields: []Field{
				{Name: ColName, Kind: table.KindText, Required: true, Case: CaseTitle, Aliases: []string{"names"}},
				{Name: ColPosition, Kind: table.KindText, Case: CaseTitle},
				{Name: ColStaffLoc, Kind: table.KindText, Case: CaseTitle},
			},
		},
		Roles: filter.Roles{Category: ColStaffLoc},
	},
	models.Buildings: facility(models.Buildings, "Building Infrastructure", "Buildings"),
	models.Valves:    facility(models.Valves, "Valves", "Valves"),
	models.Pivots:    facility(models.Pivots, "Pivots", "Pivots"),
	models.Machinery: facility(models.Machinery, "Machinery", "Machinery"),
}

func facility(d models.Domain, title, worksheet string) Definition {
	return Definition{
		Domain: d,
		Title:  title,
		Schema: Schema{
			Worksheet: worksheet,
			Fields: []Field{
				{Name: ColName, Kind: table.KindText, Case: CaseTitle},
				{Name: ColFacLoc, Kind: table.KindText, Required: true, Case: CaseTitle},
				{Name: ColFacCat, Kind: table.KindText, Case: CaseTitle},
				{Name: ColCondition, Kind: table.KindText, Case: CaseTitle},
				num(ColLatitude),
				num(ColLongitude),
				{Name: ColImage, Kind: table.KindText},
			},
		},
		Roles:  filter.Roles{Entity: ColFacLoc, Category: ColCondition},
		SortBy: []string{ColFacLoc, ColName},
	}
}

// Lookup returns the definition of a domain.
func Lookup(d models.Domain) (Definition, error) {
	def, ok := definitions[d]
	if !ok {
		return Definition{}, fmt.Errorf("unknown domain %q", d)
	}
	return def, nil
}

// WithWorksheet returns a copy reading a different worksheet name.
func (d Definition) WithWorksheet(name string) Definition {
	if name != "" {
		d.Schema.Worksheet = name
	}
	return d
}

// WithDateOrder returns a copy that reads every date column with order.
func (d Definition) WithDateOrder(order DateOrder) Definition {
	fields := make([]Field, len(d.Schema.Fields))
	copy(fields, d.Schema.Fields)
	for i := range fields {
		if fields[i].Kind == table.KindDate {
			fields[i].Order = order
		}
	}
	d.Schema.Fields = fields
	return d
}
