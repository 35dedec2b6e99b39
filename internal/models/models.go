package models

import (
	"database/sql"
	"time"
)

// Domain identifies one dashboard page and the worksheet behind it.
type Domain string

const (
	ReliefWells Domain = "relief_wells"
	Rainfall    Domain = "rainfall"
	Security    Domain = "security"
	WaterLevel  Domain = "water_level"
	Staff       Domain = "staff"
	Buildings   Domain = "buildings"
	Valves      Domain = "valves"
	Pivots      Domain = "pivots"
	Machinery   Domain = "machinery"
)

var AllDomains = []Domain{ReliefWells, Rainfall, Security, WaterLevel, Staff, Buildings, Valves, Pivots, Machinery}

// IsFacility reports whether the domain is one of the asset inventories.
func (d Domain) IsFacility() bool {
	switch d {
	case Buildings, Valves, Pivots, Machinery:
		return true
	}
	return false
}

func ParseDomain(s string) (Domain, bool) {
	for _, d := range AllDomains {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

type ReliefWellReading struct {
	WellID                string
	Date                  time.Time
	InstalledOn           sql.NullTime
	Depth                 sql.NullFloat64
	Elevation             sql.NullFloat64
	X                     sql.NullFloat64
	Y                     sql.NullFloat64
	GroundLevel           sql.NullFloat64
	FoundationLevel       sql.NullFloat64
	TopOfPVCLevel         sql.NullFloat64
	TotalDepth            sql.NullFloat64
	PVCHeight             sql.NullFloat64
	NTPL                  sql.NullFloat64
	DaysSinceInstallation sql.NullFloat64
	DepthChange           sql.NullFloat64
	ElevationChange       sql.NullFloat64
	CumulativeDepthChange sql.NullFloat64
}

type RainfallReading struct {
	Date      time.Time
	RightBank sql.NullFloat64
	LeftBank  sql.NullFloat64
}

type SecurityIncident struct {
	Category    string
	SubCategory string
	Value       string
	Count       float64
	Date        sql.NullTime
	Location    sql.NullString
}

type WaterLevelReading struct {
	Date           time.Time
	ReservoirLevel float64
}

type StaffMember struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Location string `json:"location"`
}

type Facility struct {
	Name      string
	Location  string
	Category  string
	Condition string
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
	Image     sql.NullString
}

// HasCoordinates reports whether the facility can be placed on a map.
func (f Facility) HasCoordinates() bool {
	return f.Latitude.Valid && f.Longitude.Valid
}
