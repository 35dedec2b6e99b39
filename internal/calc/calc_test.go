package calc

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

var missing = sql.NullFloat64{}

func TestDiffAndCumSum(t *testing.T) {
	obs := []Obs{
		{Key: "W1", Date: day("2024-03-01"), Value: nf(10)},
		{Key: "W1", Date: day("2024-03-02"), Value: nf(12)},
		{Key: "W1", Date: day("2024-03-03"), Value: nf(9)},
	}
	diff := Diff(obs)
	if want := []sql.NullFloat64{missing, nf(2), nf(-3)}; !cmp.Equal(diff, want) {
		t.Errorf("Diff mismatch (-got +want):\n%s", cmp.Diff(diff, want))
	}

	changes := make([]Obs, len(obs))
	for i, o := range obs {
		changes[i] = Obs{Key: o.Key, Date: o.Date, Value: diff[i]}
	}
	cum := CumSum(changes)
	if want := []sql.NullFloat64{missing, nf(2), nf(-1)}; !cmp.Equal(cum, want) {
		t.Errorf("CumSum mismatch (-got +want):\n%s", cmp.Diff(cum, want))
	}
}

func TestDiff_GroupsAndOrder(t *testing.T) {
	// Input is out of date order and interleaves two wells.
	obs := []Obs{
		{Key: "W2", Date: day("2024-01-02"), Value: nf(5)},
		{Key: "W1", Date: day("2024-01-02"), Value: nf(3)},
		{Key: "W1", Date: day("2024-01-01"), Value: nf(1)},
		{Key: "W2", Date: day("2024-01-01"), Value: nf(4)},
	}
	got := Diff(obs)
	want := []sql.NullFloat64{nf(1), nf(2), missing, missing}
	if !cmp.Equal(got, want) {
		t.Errorf("Diff mismatch (-got +want):\n%s", cmp.Diff(got, want))
	}
}

func TestDiff_MissingOperand(t *testing.T) {
	obs := []Obs{
		{Key: "W1", Date: day("2024-01-01"), Value: nf(1)},
		{Key: "W1", Date: day("2024-01-02"), Value: missing},
		{Key: "W1", Date: day("2024-01-03"), Value: nf(4)},
	}
	got := Diff(obs)
	for i, v := range got {
		if v.Valid {
			t.Errorf("Diff[%d] = %v, want missing", i, v.Float64)
		}
	}
}

func TestRates(t *testing.T) {
	tests := []struct {
		name      string
		obs       []Obs
		wantDays  int
		wantRate  sql.NullFloat64
		wantWarns int
	}{
		{
			name:     "single day divides by one",
			obs:      []Obs{{Key: "W1", Date: day("2024-01-01"), Value: nf(3)}},
			wantDays: 1,
			wantRate: nf(3),
		},
		{
			name: "inclusive span",
			obs: []Obs{
				{Key: "W1", Date: day("2024-01-01"), Value: missing},
				{Key: "W1", Date: day("2024-01-04"), Value: nf(2)},
				{Key: "W1", Date: day("2024-01-02"), Value: nf(6)},
			},
			wantDays: 4,
			wantRate: nf(1),
		},
		{
			name:      "no change values",
			obs:       []Obs{{Key: "W1", Date: day("2024-01-01"), Value: missing}},
			wantDays:  1,
			wantRate:  missing,
			wantWarns: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warns := Rates(tt.obs, DefaultRateOptions())
			if len(got) != 1 {
				t.Fatalf("len(Rates) = %d, want 1", len(got))
			}
			if got[0].Days != tt.wantDays {
				t.Errorf("Days = %d, want %d", got[0].Days, tt.wantDays)
			}
			if got[0].PerDay != tt.wantRate {
				t.Errorf("PerDay = %v, want %v", got[0].PerDay, tt.wantRate)
			}
			if len(warns) != tt.wantWarns {
				t.Errorf("warnings = %v, want %d", warns, tt.wantWarns)
			}
		})
	}
}

func TestDaySpan(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same day", day("2024-01-01"), day("2024-01-01"), 0},
		{"leap february", day("2024-02-28"), day("2024-03-01"), 2},
		{"reversed", day("2024-01-10"), day("2024-01-01"), -9},
		{"time of day ignored", day("2024-01-01").Add(23 * time.Hour), day("2024-01-02"), 1},
		{"beyond duration range", day("1700-01-01"), day("2024-01-03"), 118340},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaySpan(tt.from, tt.to); got != tt.want {
				t.Errorf("DaySpan = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRates_ZeroOffsetClampsSpan(t *testing.T) {
	obs := []Obs{{Key: "W1", Date: day("2024-01-01"), Value: nf(4)}}
	got, warns := Rates(obs, RateOptions{DayOffset: 0})
	if got[0].Days != 1 {
		t.Errorf("Days = %d, want 1", got[0].Days)
	}
	if got[0].PerDay.Float64 != 4 {
		t.Errorf("PerDay = %v, want 4", got[0].PerDay.Float64)
	}
	if len(warns) != 1 {
		t.Errorf("warnings = %v, want one", warns)
	}
}

func TestExtractCount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12 incidents reported", 12},
		{"no incidents", 0},
		{"", 0},
		{"3 abducted, 2 released", 3},
		{"Total: 007", 7},
	}
	for _, tt := range tests {
		if got := ExtractCount(tt.in); got != tt.want {
			t.Errorf("ExtractCount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	points := []Point{
		{Date: day("2024-02-10"), Value: nf(4)},
		{Date: day("2024-01-05"), Value: nf(1)},
		{Date: day("2024-01-20"), Value: nf(2)},
		{Date: day("2024-03-01"), Value: missing},
	}

	sums := Aggregate(points, Monthly, Sum)
	var labels []string
	var values []float64
	for _, b := range sums {
		labels = append(labels, b.Label)
		values = append(values, b.Value.Float64)
		if !b.Value.Valid {
			t.Errorf("Sum bucket %s missing, want 0-valued", b.Label)
		}
	}
	if diff := cmp.Diff([]string{"2024-01", "2024-02", "2024-03"}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3, 4, 0}, values); diff != "" {
		t.Errorf("sums (-want +got):\n%s", diff)
	}

	means := Aggregate(points, Monthly, Mean)
	if means[2].Value.Valid {
		t.Errorf("Mean of all-missing bucket = %v, want missing", means[2].Value.Float64)
	}
	if means[0].Value.Float64 != 1.5 {
		t.Errorf("Mean January = %v, want 1.5", means[0].Value.Float64)
	}

	counts := Aggregate(points, Yearly, Count)
	if len(counts) != 1 || counts[0].Value.Float64 != 4 || counts[0].Label != "2024" {
		t.Errorf("Yearly count = %+v, want one 2024 bucket of 4", counts)
	}
}

func TestAggregate_MonthOfYear(t *testing.T) {
	points := []Point{
		{Date: day("2023-01-05"), Value: nf(1)},
		{Date: day("2024-01-05"), Value: nf(3)},
		{Date: day("2024-06-05"), Value: nf(5)},
	}
	got := Aggregate(points, MonthOfYear, Mean)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Label != "January" || got[0].Value.Float64 != 2 {
		t.Errorf("first bucket = %+v, want January mean 2", got[0])
	}
}

func TestDetectAnomalies(t *testing.T) {
	t.Run("identical values flag nothing", func(t *testing.T) {
		vals := []sql.NullFloat64{nf(5), nf(5), nf(5), nf(5)}
		got, warns := DetectAnomalies(vals, DefaultAnomalyThreshold)
		for i, a := range got {
			if a.Flagged || a.Z.Valid {
				t.Errorf("anomaly[%d] = %+v, want unflagged and undefined", i, a)
			}
		}
		if len(warns) != 1 {
			t.Errorf("warnings = %v, want one", warns)
		}
	})

	t.Run("single value", func(t *testing.T) {
		got, warns := DetectAnomalies([]sql.NullFloat64{nf(1), missing}, DefaultAnomalyThreshold)
		if got[0].Flagged || len(warns) != 1 {
			t.Errorf("got %+v, warns %v", got, warns)
		}
	})

	t.Run("outlier", func(t *testing.T) {
		vals := make([]sql.NullFloat64, 0, 21)
		for i := 0; i < 20; i++ {
			vals = append(vals, nf(10))
		}
		vals = append(vals, nf(100), missing)
		got, warns := DetectAnomalies(vals, DefaultAnomalyThreshold)
		if len(warns) != 0 {
			t.Errorf("unexpected warnings %v", warns)
		}
		if !got[20].Flagged {
			t.Errorf("outlier not flagged: %+v", got[20])
		}
		if got[0].Flagged {
			t.Errorf("regular value flagged: %+v", got[0])
		}
		if got[21].Z.Valid {
			t.Errorf("missing value got a z-score")
		}
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		vals := []sql.NullFloat64{nf(1), nf(2), nf(3)}
		got, _ := DetectAnomalies(vals, 1.0)
		if !got[0].Flagged || got[1].Flagged || !got[2].Flagged {
			t.Errorf("got %+v, want ends flagged at threshold 1", got)
		}
	})
}

func TestDescribe(t *testing.T) {
	s := Describe([]sql.NullFloat64{nf(2), nf(4), missing, nf(6)})
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.Mean.Float64 != 4 || s.Min.Float64 != 2 || s.Max.Float64 != 6 || s.Sum.Float64 != 12 {
		t.Errorf("Describe = %+v", s)
	}
	if math.Abs(s.Std.Float64-2) > 1e-9 {
		t.Errorf("Std = %v, want 2 (sample)", s.Std.Float64)
	}

	one := Describe([]sql.NullFloat64{nf(1)})
	if one.Std.Valid {
		t.Errorf("Std of one value = %v, want missing", one.Std.Float64)
	}
	if empty := Describe(nil); empty.Mean.Valid {
		t.Errorf("Mean of nothing should be missing")
	}
}

func TestCorrelate(t *testing.T) {
	a := []sql.NullFloat64{nf(1), nf(2), nf(3), missing}
	b := []sql.NullFloat64{nf(2), nf(4), nf(6), nf(100)}
	c := []sql.NullFloat64{nf(7), nf(7), nf(7), nf(7)}
	m := Correlate([]string{"a", "b", "c"}, [][]sql.NullFloat64{a, b, c})
	if r := m.Values[0][1]; !r.Valid || math.Abs(r.Float64-1) > 1e-9 {
		t.Errorf("corr(a,b) = %+v, want 1", r)
	}
	if m.Values[1][0] != m.Values[0][1] {
		t.Errorf("matrix not symmetric")
	}
	if m.Values[0][2].Valid || m.Values[2][2].Valid {
		t.Errorf("constant column correlation should be missing")
	}
}

func TestValueCounts(t *testing.T) {
	got := TopN(ValueCounts([]string{"Guard", "Driver", "Guard", "", "Clerk", "Driver", "Guard"}), 2)
	want := []ValueCount{{"Guard", 3}, {"Driver", 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValueCounts (-want +got):\n%s", diff)
	}
}
