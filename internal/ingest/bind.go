package ingest

import (
	"database/sql"
	"time"

	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

func nullTime(v table.Value) sql.NullTime {
	if !v.Valid || v.Kind != table.KindDate {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.Time, Valid: true}
}

func nullString(v table.Value) sql.NullString {
	if !v.Valid || v.Str == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func date(v table.Value) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func ReliefWellReadings(t *table.Table) []models.ReliefWellReading {
	out := make([]models.ReliefWellReading, t.Len())
	for i := range t.Rows {
		v := func(col string) sql.NullFloat64 { return nullFloat(t.Value(i, col)) }
		out[i] = models.ReliefWellReading{
			WellID:                t.Value(i, ColWellID).String(),
			Date:                  date(t.Value(i, ColWellDate)),
			InstalledOn:           nullTime(t.Value(i, ColInstalled)),
			Depth:                 v(ColDepth),
			Elevation:             v(ColElevation),
			X:                     v(ColX),
			Y:                     v(ColY),
			GroundLevel:           v(ColGroundLevel),
			FoundationLevel:       v(ColFoundationLevel),
			TopOfPVCLevel:         v(ColTopOfPVC),
			TotalDepth:            v(ColTotalDepth),
			PVCHeight:             v(ColPVCHeight),
			NTPL:                  v(ColNTPL),
			DaysSinceInstallation: v(ColDaysInstalled),
			DepthChange:           v(ColDepthChange),
			ElevationChange:       v(ColElevationChange),
			CumulativeDepthChange: v(ColCumDepthChange),
		}
	}
	return out
}

func RainfallReadings(t *table.Table) []models.RainfallReading {
	out := make([]models.RainfallReading, t.Len())
	for i := range t.Rows {
		out[i] = models.RainfallReading{
			Date:      date(t.Value(i, ColRainDate)),
			RightBank: nullFloat(t.Value(i, ColRightBank)),
			LeftBank:  nullFloat(t.Value(i, ColLeftBank)),
		}
	}
	return out
}

func SecurityIncidents(t *table.Table) []models.SecurityIncident {
	out := make([]models.SecurityIncident, t.Len())
	for i := range t.Rows {
		out[i] = models.SecurityIncident{
			Category:    t.Value(i, ColCategory).String(),
			SubCategory: t.Value(i, ColSubCategory).String(),
			Value:       t.Value(i, ColValue).String(),
			Count:       t.Value(i, ColCount).Num,
			Date:        nullTime(t.Value(i, ColIncidentAt)),
			Location:    nullString(t.Value(i, ColLocation)),
		}
	}
	return out
}

func WaterLevelReadings(t *table.Table) []models.WaterLevelReading {
	out := make([]models.WaterLevelReading, t.Len())
	for i := range t.Rows {
		out[i] = models.WaterLevelReading{
			Date:           date(t.Value(i, ColLevelDate)),
			ReservoirLevel: t.Value(i, ColReservoirLevel).Num,
		}
	}
	return out
}

func StaffMembers(t *table.Table) []models.StaffMember {
	out := make([]models.StaffMember, t.Len())
	for i := range t.Rows {
		out[i] = models.StaffMember{
			Name:     t.Value(i, ColName).String(),
			Position: t.Value(i, ColPosition).String(),
			Location: t.Value(i, ColStaffLoc).String(),
		}
	}
	return out
}

func Facilities(t *table.Table) []models.Facility {
	out := make([]models.Facility, t.Len())
	for i := range t.Rows {
		out[i] = models.Facility{
			Name:      t.Value(i, ColName).String(),
			Location:  t.Value(i, ColFacLoc).String(),
			Category:  t.Value(i, ColFacCat).String(),
			Condition: t.Value(i, ColCondition).String(),
			Latitude:  nullFloat(t.Value(i, ColLatitude)),
			Longitude: nullFloat(t.Value(i, ColLongitude)),
			Image:     nullString(t.Value(i, ColImage)),
		}
	}
	return out
}
