package calc

import (
	"database/sql"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

type Period int

const (
	Monthly Period = iota
	Yearly
	// MonthOfYear pools every year's January together, and so on.
	MonthOfYear
)

type Agg int

const (
	Sum Agg = iota
	Mean
	Count
)

type Point struct {
	Date  time.Time
	Value sql.NullFloat64
}

type Bucket struct {
	Start time.Time       `json:"start"`
	Label string          `json:"label"`
	Value sql.NullFloat64 `json:"value"`
	Count int             `json:"count"`
}

// BucketStart maps a date to the first day of its bucket.
func BucketStart(t time.Time, p Period) time.Time {
	switch p {
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case MonthOfYear:
		return time.Date(1, t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func bucketLabel(start time.Time, p Period) string {
	switch p {
	case Yearly:
		return start.Format("2006")
	case MonthOfYear:
		return start.Month().String()
	default:
		return start.Format("2006-01")
	}
}

// Aggregate groups points by period and reduces each bucket. Sum of a bucket
// with no valid values is 0; Mean of such a bucket is missing. Count counts
// points regardless of value. Buckets are returned in chronological order.
func Aggregate(points []Point, p Period, a Agg) []Bucket {
	groups := lo.GroupBy(points, func(pt Point) time.Time { return BucketStart(pt.Date, p) })
	out := make([]Bucket, 0, len(groups))
	for start, pts := range groups {
		b := Bucket{Start: start, Label: bucketLabel(start, p), Count: len(pts)}
		vals := Floats(lo.Map(pts, func(pt Point, _ int) sql.NullFloat64 { return pt.Value }))
		switch a {
		case Sum:
			s, _ := stats.Sum(vals)
			b.Value = null(s)
		case Mean:
			if m, err := stats.Mean(vals); err == nil {
				b.Value = null(m)
			}
		case Count:
			b.Value = null(float64(len(pts)))
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Summary is a descriptive summary of the valid values of a column.
type Summary struct {
	Count int             `json:"count"`
	Sum   sql.NullFloat64 `json:"sum"`
	Mean  sql.NullFloat64 `json:"mean"`
	Std   sql.NullFloat64 `json:"std"`
	Min   sql.NullFloat64 `json:"min"`
	Max   sql.NullFloat64 `json:"max"`
}

// Describe summarizes valid values. Std is the sample standard deviation and
// needs at least two values.
func Describe(values []sql.NullFloat64) Summary {
	vals := Floats(values)
	s := Summary{Count: len(vals)}
	if len(vals) == 0 {
		return s
	}
	sum, _ := stats.Sum(vals)
	mean, _ := stats.Mean(vals)
	low, _ := stats.Min(vals)
	high, _ := stats.Max(vals)
	s.Sum, s.Mean, s.Min, s.Max = null(sum), null(mean), null(low), null(high)
	if len(vals) >= 2 {
		if sd, err := stats.StandardDeviationSample(vals); err == nil {
			s.Std = null(sd)
		}
	}
	return s
}

type ValueCount struct {
	Value string `json:"value"`
	N     int    `json:"n"`
}

// ValueCounts counts non-empty values, most frequent first, ties by value.
func ValueCounts(values []string) []ValueCount {
	counts := lo.CountValues(lo.Compact(values))
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// TopN returns at most n leading counts.
func TopN(counts []ValueCount, n int) []ValueCount {
	if len(counts) <= n {
		return counts
	}
	return counts[:n]
}
