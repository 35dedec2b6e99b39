package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

func mustLookup(t *testing.T, dom models.Domain) Definition {
	t.Helper()
	def, err := Lookup(dom)
	if err != nil {
		t.Fatal(err)
	}
	return def
}

func TestClean_DropsMalformedRequired(t *testing.T) {
	schema := Schema{
		Worksheet: "Levels",
		Fields: []Field{
			{Name: "date", Kind: table.KindDate, Required: true, Order: DayFirst},
			{Name: "level", Kind: table.KindNumber, Required: true},
			{Name: "note", Kind: table.KindText},
		},
	}
	records := []table.Record{
		{"Date ": "01/02/2024", "LEVEL": "1,234.5", "note": " ok "},
		{"Date ": "not a date", "LEVEL": "1", "note": ""},
		{"Date ": "02/02/2024", "LEVEL": "abc", "note": ""},
		{"Date ": "03/02/2024", "LEVEL": 7.0, "note": nil},
	}

	got, report, err := Clean(records, schema)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	if v := got.Value(0, "level"); v.Num != 1234.5 {
		t.Errorf("level = %v, want 1234.5", v.Num)
	}
	if v := got.Value(0, "date"); !v.Time.Equal(d(2024, 2, 1)) {
		t.Errorf("date = %v, want 2024-02-01", v.Time)
	}
	if got.Value(1, "note").Valid {
		t.Errorf("nil note should be missing")
	}
	want := map[string]int{"date: missing or invalid": 1, "level: missing or invalid": 1}
	if diff := cmp.Diff(want, report.Dropped); diff != "" {
		t.Errorf("dropped (-want +got):\n%s", diff)
	}
	if report.RowsIn != 4 || report.RowsKept != 2 || report.RowsDropped() != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestClean_MissingColumns(t *testing.T) {
	def := mustLookup(t, models.WaterLevel)

	_, _, err := Clean([]table.Record{{"date": "01/01/2024"}}, def.Schema)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if diff := cmp.Diff([]string{ColReservoirLevel}, se.Missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}

	// Optional columns only warn; derived columns are silent.
	sec := mustLookup(t, models.Security)
	tbl, report, err := Clean([]table.Record{{"Category": "incident summary"}}, sec.Schema)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if tbl.Len() != 1 || len(report.Warnings) != 4 {
		t.Errorf("len = %d, warnings = %v", tbl.Len(), report.Warnings)
	}
	for _, w := range report.Warnings {
		if strings.Contains(w, ColCount) {
			t.Errorf("derived column reported missing: %s", w)
		}
	}
}

func TestClean_Empty(t *testing.T) {
	tbl, report, err := Clean(nil, mustLookup(t, models.Rainfall).Schema)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if !tbl.Empty() || len(tbl.Columns) != 3 || len(report.Warnings) != 1 {
		t.Errorf("table = %+v, report = %+v", tbl, report)
	}
}

func TestClean_Deterministic(t *testing.T) {
	def := mustLookup(t, models.Staff)
	records := []table.Record{
		{"names": "ada  obi", "position": "engineer", "location": "main gate", "Name": "ignored"},
		{"names": "", "position": "clerk", "location": "annex"},
	}
	a, _, err := Clean(records, def.Schema)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, _, _ := Clean(records, def.Schema)
		if !a.Equal(b) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestPrepare_Rainfall(t *testing.T) {
	def := mustLookup(t, models.Rainfall)
	records := []table.Record{
		{"date": "02/10/2024", "righbank": "5", "leftbank": "1.5"},
		{"date": "31-31-2024", "righbank": "99", "leftbank": "99"},
		{"date": "02/03/2024", "righbank": "2", "leftbank": ""},
	}

	tbl, report, _, err := Prepare(def, records)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
	if report.RowsDropped() != 1 {
		t.Errorf("RowsDropped = %d, want 1", report.RowsDropped())
	}

	readings := RainfallReadings(tbl)
	if !readings[0].Date.Before(readings[1].Date) {
		t.Errorf("not sorted ascending: %v, %v", readings[0].Date, readings[1].Date)
	}
	if readings[1].LeftBank.Valid != true || readings[0].LeftBank.Valid {
		t.Errorf("left bank validity = %v, %v", readings[0].LeftBank.Valid, readings[1].LeftBank.Valid)
	}

	var right, left []calc.Point
	for _, r := range readings {
		right = append(right, calc.Point{Date: r.Date, Value: r.RightBank})
		left = append(left, calc.Point{Date: r.Date, Value: r.LeftBank})
	}
	rb := calc.Aggregate(right, calc.Monthly, calc.Sum)
	lb := calc.Aggregate(left, calc.Monthly, calc.Sum)
	if len(rb) != 1 || rb[0].Label != "2024-02" || rb[0].Value.Float64 != 7 {
		t.Errorf("right bank monthly = %+v, want 2024-02 total 7", rb)
	}
	if lb[0].Value.Float64 != 1.5 {
		t.Errorf("left bank monthly = %v, want 1.5", lb[0].Value.Float64)
	}
}

func TestPrepare_DedupeKeepsFirst(t *testing.T) {
	def := mustLookup(t, models.WaterLevel)
	records := []table.Record{
		{"date": "2024-01-02", "reservoir_level": "612.5"},
		{"date": "2024-01-01", "reservoir_level": "611"},
		{"date": "2024-01-02", "reservoir_level": "700"},
	}
	tbl, report, _, err := Prepare(def, records)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	levels := WaterLevelReadings(tbl)
	if len(levels) != 2 || levels[1].ReservoirLevel != 612.5 {
		t.Errorf("levels = %+v, want first 2024-01-02 row kept", levels)
	}
	if report.RowsKept != 2 || report.Dropped["duplicate date"] != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestPrepare_WaterLevelSerialDates(t *testing.T) {
	def := mustLookup(t, models.WaterLevel)
	records, err := table.ReadCSV(strings.NewReader("date,reservoir_level\n45293,610\n45292,609.5\n01/03/2024,611\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	tbl, report, _, err := Prepare(def, records)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if report.RowsKept != 3 {
		t.Fatalf("report = %+v, want all rows kept", report)
	}

	var got []string
	for _, r := range WaterLevelReadings(tbl) {
		got = append(got, r.Date.Format("2006-01-02"))
	}
	if diff := cmp.Diff([]string{"2024-01-01", "2024-01-02", "2024-01-03"}, got); diff != "" {
		t.Errorf("dates (-want +got):\n%s", diff)
	}
}

func TestPrepare_ReliefWells(t *testing.T) {
	def := mustLookup(t, models.ReliefWells)
	records := []table.Record{
		{"RW_ID": "w1", "Date": "03/01/2024", "Date of Installation": "01/01/2024", "Depth": "9", "Elevation": "100"},
		{"RW_ID": "W1", "Date": "01/01/2024", "Date of Installation": "01/01/2024", "Depth": "10", "Elevation": "101"},
		{"RW_ID": "W2", "Date": "01/01/2024", "Date of Installation": "", "Depth": "5", "Elevation": "50"},
		{"RW_ID": "W1", "Date": "02/01/2024", "Date of Installation": "01/01/2024", "Depth": "12", "Elevation": ""},
		{"RW_ID": "W1", "Date": "bad", "Date of Installation": "01/01/2024", "Depth": "1", "Elevation": "1"},
		{"RW_ID": "W3", "Date": "03/01/2024", "Date of Installation": "01/01/1700", "Depth": "4", "Elevation": "40"},
	}
	tbl, report, warns, err := Prepare(def, records)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(warns) != 0 {
		t.Errorf("warnings = %v", warns)
	}
	if report.RowsKept != 5 {
		t.Fatalf("RowsKept = %d, want 5", report.RowsKept)
	}

	wells := ReliefWellReadings(tbl)
	var ids []string
	var change, cum, days []any
	for _, w := range wells {
		ids = append(ids, w.WellID)
		change = append(change, nullOrNumber(w.DepthChange.Float64, w.DepthChange.Valid))
		cum = append(cum, nullOrNumber(w.CumulativeDepthChange.Float64, w.CumulativeDepthChange.Valid))
		days = append(days, nullOrNumber(w.DaysSinceInstallation.Float64, w.DaysSinceInstallation.Valid))
	}
	if diff := cmp.Diff([]string{"W1", "W1", "W1", "W2", "W3"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{nil, 2.0, -3.0, nil, nil}, change); diff != "" {
		t.Errorf("depth change (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{nil, 2.0, -1.0, nil, nil}, cum); diff != "" {
		t.Errorf("cumulative (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{0.0, 1.0, 2.0, nil, 118340.0}, days); diff != "" {
		t.Errorf("days since installation (-want +got):\n%s", diff)
	}
	if wells[1].ElevationChange.Valid || wells[2].ElevationChange.Valid {
		t.Errorf("elevation change across a missing value should be missing")
	}
}

func nullOrNumber(f float64, ok bool) any {
	if !ok {
		return nil
	}
	return f
}

func TestPrepare_SecurityCounts(t *testing.T) {
	def := mustLookup(t, models.Security)
	records := []table.Record{
		{"Category": "incident summary", "Sub-Category": "total incidents", "Value": "12 incidents reported", "Date": "", "Location": ""},
		{"Category": "INCIDENT SUMMARY", "Sub-Category": "Fatalities", "Value": "no incidents", "Date": "25/01/2024", "Location": "kwali"},
	}
	tbl, _, _, err := Prepare(def, records)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	inc := SecurityIncidents(tbl)
	if inc[0].Count != 12 || inc[1].Count != 0 {
		t.Errorf("counts = %v, %v; want 12, 0", inc[0].Count, inc[1].Count)
	}
	if inc[0].Category != "INCIDENT SUMMARY" || inc[0].SubCategory != "Total Incidents" {
		t.Errorf("normalized = %q / %q", inc[0].Category, inc[0].SubCategory)
	}
	if inc[0].Date.Valid || !inc[1].Date.Valid || inc[1].Location.String != "Kwali" {
		t.Errorf("optional fields = %+v", inc)
	}
}

// Exporting a filtered table and cleaning the CSV again must reproduce it.
func TestCSVRoundTrip(t *testing.T) {
	for _, dom := range []models.Domain{models.ReliefWells, models.Rainfall, models.Security} {
		t.Run(string(dom), func(t *testing.T) {
			def := mustLookup(t, dom)
			tbl, _, _, err := Prepare(def, roundTripFixture(dom))
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			filtered, err := filter.Apply(tbl, def.Roles, filter.Constraints{From: d(2024, 1, 2)})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			var buf bytes.Buffer
			if err := filtered.WriteCSV(&buf); err != nil {
				t.Fatalf("WriteCSV: %v", err)
			}
			records, err := table.ReadCSV(&buf)
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			again, _, err := Clean(records, def.Schema)
			if err != nil {
				t.Fatalf("Clean: %v", err)
			}
			if !filtered.Equal(again) {
				t.Errorf("round trip changed the table\nbefore: %v\nafter:  %v", filtered.Rows, again.Rows)
			}
		})
	}
}

func roundTripFixture(dom models.Domain) []table.Record {
	switch dom {
	case models.ReliefWells:
		return []table.Record{
			{"RW_ID": "rw 1", "Date": "01/01/2024", "Date of Installation": "15/06/2023", "Depth": "10.125", "Elevation": "1,201.3", "NTPL": "x"},
			{"RW_ID": "RW 1", "Date": "05/01/2024", "Date of Installation": "15/06/2023", "Depth": "9.5", "Elevation": "1201.1", "NTPL": "0.3"},
			{"RW_ID": "RW 2", "Date": "03/01/2024", "Depth": "", "Elevation": "990"},
		}
	case models.Rainfall:
		return []table.Record{
			{"date": "1/1/2024", "righbank": "0", "leftbank": "1,000.25"},
			{"date": "1/3/2024", "righbank": "12.7", "leftbank": ""},
		}
	default:
		return []table.Record{
			{"Category": "notable incidents", "Sub-Category": "theft", "Value": "3 cables, 2 pumps", "Date": "1/4/2024", "Location": "spillway  road"},
			{"Category": "notable incidents", "Sub-Category": "", "Value": "", "Date": "2024-01-09", "Location": ""},
		}
	}
}
