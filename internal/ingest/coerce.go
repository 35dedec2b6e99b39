package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseMode selects how text fields are normalized for grouping.
type CaseMode int

const (
	CaseNone CaseMode = iota
	CaseTitle
	CaseUpper
	CaseLower
)

// Layouts that carry no day/month ambiguity are always tried first so that
// exported ISO dates re-parse identically regardless of DayFirst.
var isoLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006.01.02",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"Monday, 2 January 2006",
}

var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"02/01/06",
	"2/1/06",
}

var monthFirstLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/06",
	"1/2/06",
}

// sheetsEpoch is day zero of spreadsheet date serial numbers.
var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DateOrder controls how ambiguous numeric dates such as 03/04/2024 are read.
type DateOrder int

const (
	MonthFirst DateOrder = iota
	DayFirst
	// Mixed reads month-first and falls back to day-first when that fails,
	// so 25/01/2024 still parses.
	Mixed
)

// ParseDateOrder reads "month_first", "day_first" or "mixed".
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month_first":
		return MonthFirst, nil
	case "day_first":
		return DayFirst, nil
	case "mixed":
		return Mixed, nil
	}
	return 0, fmt.Errorf("unknown date order %q", s)
}

// ParseDate coerces a raw cell into a calendar date at UTC midnight.
// It reports false for empty, malformed or out-of-range values.
func ParseDate(raw any, order DateOrder) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return truncateDay(v), !v.IsZero()
	case float64:
		return serialDate(v)
	case int:
		return serialDate(float64(v))
	case int64:
		return serialDate(float64(v))
	case string:
		return parseDateString(v, order)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string, order DateOrder) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := tryLayouts(s, isoLayouts); ok {
		return t, true
	}
	var t time.Time
	var ok bool
	switch order {
	case DayFirst:
		t, ok = tryLayouts(s, dayFirstLayouts)
	case Mixed:
		if t, ok = tryLayouts(s, monthFirstLayouts); !ok {
			t, ok = tryLayouts(s, dayFirstLayouts)
		}
	default:
		t, ok = tryLayouts(s, monthFirstLayouts)
	}
	if !ok && isSerial(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f)
		}
	}
	return t, ok
}

// isSerial reports whether s looks like a spreadsheet day serial, such as
// "45292" or "45292.5".
func isSerial(s string) bool {
	whole, frac, _ := strings.Cut(s, ".")
	digits := func(p string) bool {
		return strings.Trim(p, "0123456789") == ""
	}
	return whole != "" && digits(whole) && digits(frac)
}

func tryLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func serialDate(f float64) (time.Time, bool) {
	// 1 is 1899-12-31; 2958465 is 9999-12-31.
	if math.IsNaN(f) || f < 1 || f > 2958465 {
		return time.Time{}, false
	}
	return sheetsEpoch.AddDate(0, 0, int(f)), true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseNumber coerces a raw cell into a float, stripping thousands
// separators and surrounding whitespace. NaN and infinities are rejected.
func ParseNumber(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case bool:
		return 0, false
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeText trims, collapses inner whitespace and applies the case mode.
// It reports false when nothing is left.
func NormalizeText(raw any, mode CaseMode) (string, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return "", false
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	switch mode {
	case CaseTitle:
		// Casers hold state and must not be shared between goroutines.
		s = cases.Title(language.English).String(s)
	case CaseUpper:
		s = strings.ToUpper(s)
	case CaseLower:
		s = strings.ToLower(s)
	}
	return s, true
}

// normalizeHeader is the key used to match worksheet headers to schema fields.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
