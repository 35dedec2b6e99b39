// Package calc holds the derived-metrics calculations shared by every
// dashboard page. All functions are pure: they never mutate their inputs and
// degrade to missing or zero values, reported as Warnings, instead of failing.
package calc

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// Warning is a computation that could not produce a meaningful value.
type Warning struct {
	Metric string `json:"metric"`
	Group  string `json:"group,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Group == "" {
		return fmt.Sprintf("%s: %s", w.Metric, w.Reason)
	}
	return fmt.Sprintf("%s[%s]: %s", w.Metric, w.Group, w.Reason)
}

// Obs is one value of an entity on a date.
type Obs struct {
	Key   string
	Date  time.Time
	Value sql.NullFloat64
}

func null(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }

// chronological returns, per key, the input indices ordered by date. Ties keep
// input order.
func chronological(obs []Obs) map[string][]int {
	groups := make(map[string][]int)
	for i, o := range obs {
		groups[o.Key] = append(groups[o.Key], i)
	}
	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return obs[idx[a]].Date.Before(obs[idx[b]].Date)
		})
	}
	return groups
}

// Diff returns the first difference of Value within each key, ordered by date.
// Results align with the input; the first record of a group, and any record
// whose own or previous value is missing, has a missing difference.
func Diff(obs []Obs) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(obs))
	for _, idx := range chronological(obs) {
		for n := 1; n < len(idx); n++ {
			cur, prev := obs[idx[n]].Value, obs[idx[n-1]].Value
			if cur.Valid && prev.Valid {
				out[idx[n]] = null(cur.Float64 - prev.Float64)
			}
		}
	}
	return out
}

// CumSum returns the running sum of Value within each key, ordered by date.
// Missing values stay missing and do not reset the sum.
func CumSum(obs []Obs) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(obs))
	for _, idx := range chronological(obs) {
		var sum float64
		for _, i := range idx {
			if !obs[i].Value.Valid {
				continue
			}
			sum += obs[i].Value.Float64
			out[i] = null(sum)
		}
	}
	return out
}

// DaySpan is the number of calendar days from one date to another. Only the
// year, month and day of each argument are used, so spans longer than a
// time.Duration can hold are still exact.
func DaySpan(from, to time.Time) int {
	midnight := func(t time.Time) int64 {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
	}
	return int((midnight(to) - midnight(from)) / 86400)
}

type RateOptions struct {
	// DayOffset is added to max-min days so a single-day group spans one day.
	DayOffset int
}

func DefaultRateOptions() RateOptions {
	return RateOptions{DayOffset: 1}
}

type Rate struct {
	Key        string          `json:"key"`
	Count      int             `json:"count"`
	Days       int             `json:"days"`
	MeanChange sql.NullFloat64 `json:"mean_change"`
	PerDay     sql.NullFloat64 `json:"per_day"`
	// Frequency is the average number of days between measurements.
	Frequency float64 `json:"frequency"`
}

// Rates divides each group's mean change by its inclusive day span.
func Rates(obs []Obs, opts RateOptions) ([]Rate, []Warning) {
	var warns []Warning
	var out []Rate
	groups := chronological(obs)
	for _, key := range lo.Keys(groups) {
		idx := groups[key]
		if len(idx) == 0 {
			continue
		}
		first, last := obs[idx[0]].Date, obs[idx[len(idx)-1]].Date
		days := DaySpan(first, last) + opts.DayOffset
		if days < 1 {
			warns = append(warns, Warning{Metric: "rate", Group: key, Reason: "non-positive day span, using 1"})
			days = 1
		}
		r := Rate{Key: key, Count: len(idx), Days: days, Frequency: float64(days) / float64(len(idx))}

		changes := lo.FilterMap(idx, func(i int, _ int) (float64, bool) {
			return obs[i].Value.Float64, obs[i].Value.Valid
		})
		if mean, err := stats.Mean(changes); err == nil {
			r.MeanChange = null(mean)
			r.PerDay = null(mean / float64(days))
		} else {
			warns = append(warns, Warning{Metric: "rate", Group: key, Reason: "no change values"})
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	sort.Slice(warns, func(i, j int) bool { return warns[i].Group < warns[j].Group })
	return out, warns
}

var digitRun = regexp.MustCompile(`\d+`)

// ExtractCount returns the first run of digits in free text as a count, or
// 0 when the text has no digits.
func ExtractCount(s string) float64 {
	m := digitRun.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return n
}

// Floats keeps only the valid values.
func Floats(values []sql.NullFloat64) []float64 {
	return lo.FilterMap(values, func(v sql.NullFloat64, _ int) (float64, bool) {
		return v.Float64, v.Valid
	})
}
