// Package filter applies user-selected constraints to a cleaned table.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/gridhall/ghatz/internal/table"
)

// ErrEmptyResult means a filter combination matched no rows. Views check for
// it before aggregating.
var ErrEmptyResult = errors.New("no data available for the selected filters")

// Roles names the columns a domain exposes to filtering. An empty name means
// the domain has no such control.
type Roles struct {
	Date     string
	Entity   string
	Category string
}

// Constraints are the user's selections. Zero values do not constrain.
type Constraints struct {
	From       time.Time
	To         time.Time
	Entities   []string
	Categories []string
}

func (c Constraints) IsZero() bool {
	return c.From.IsZero() && c.To.IsZero() && len(c.Entities) == 0 && len(c.Categories) == 0
}

// Apply returns the rows satisfying every constraint. The date range is
// inclusive on both ends; a row with a missing date fails any date bound.
// Constraints on a role the domain lacks are ignored. The result is a new
// table; ErrEmptyResult is returned alongside it when nothing matched.
func Apply(t *table.Table, roles Roles, c Constraints) (*table.Table, error) {
	type check func(table.Row) bool
	var checks []check

	if roles.Date != "" && (!c.From.IsZero() || !c.To.IsZero()) {
		if col, ok := t.Col(roles.Date); ok {
			checks = append(checks, func(r table.Row) bool {
				v := r[col]
				if !v.Valid {
					return false
				}
				if !c.From.IsZero() && v.Time.Before(c.From) {
					return false
				}
				return c.To.IsZero() || !v.Time.After(c.To)
			})
		}
	}
	if roles.Entity != "" && len(c.Entities) > 0 {
		if col, ok := t.Col(roles.Entity); ok {
			checks = append(checks, oneOf(col, c.Entities))
		}
	}
	if roles.Category != "" && len(c.Categories) > 0 {
		if col, ok := t.Col(roles.Category); ok {
			checks = append(checks, oneOf(col, c.Categories))
		}
	}

	out := t.Where(func(r table.Row) bool {
		for _, ok := range checks {
			if !ok(r) {
				return false
			}
		}
		return true
	})
	if out.Empty() {
		return out, ErrEmptyResult
	}
	return out, nil
}

// oneOf matches rows whose column value equals one of vals after folding.
func oneOf(col int, vals []string) func(table.Row) bool {
	set := lo.SliceToMap(vals, func(s string) (string, struct{}) { return Fold(s), struct{}{} })
	return func(r table.Row) bool {
		_, ok := set[Fold(r[col].String())]
		return ok
	}
}

// Fold returns the form selections are compared in: case folded with inner
// whitespace collapsed, so "rw 1" selects "RW 1".
func Fold(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Options lists the distinct values a domain offers for its entity and
// category controls, and the date bounds for its range picker.
type Options struct {
	Entities   []string   `json:"entities,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	MinDate    *time.Time `json:"min_date,omitempty"`
	MaxDate    *time.Time `json:"max_date,omitempty"`
}

func OptionsFor(t *table.Table, roles Roles) Options {
	var o Options
	o.Entities = distinct(t, roles.Entity)
	o.Categories = distinct(t, roles.Category)
	if col, ok := t.Col(roles.Date); ok && roles.Date != "" {
		for _, r := range t.Rows {
			v := r[col]
			if !v.Valid {
				continue
			}
			d := v.Time
			if o.MinDate == nil || d.Before(*o.MinDate) {
				o.MinDate = &d
			}
			if o.MaxDate == nil || d.After(*o.MaxDate) {
				o.MaxDate = &d
			}
		}
	}
	return o
}

func distinct(t *table.Table, name string) []string {
	if name == "" {
		return nil
	}
	col, ok := t.Col(name)
	if !ok {
		return nil
	}
	vals := lo.Uniq(lo.Compact(lo.Map(t.Rows, func(r table.Row, _ int) string { return r[col].String() })))
	sort.Strings(vals)
	return vals
}

// ParseQuery reads constraints from URL query values: from, to
// (YYYY-MM-DD), and repeated or comma-separated entity and category.
func ParseQuery(q url.Values) (Constraints, error) {
	var c Constraints
	var err error
	if c.From, err = parseDay(q.Get("from")); err != nil {
		return c, fmt.Errorf("from: %w", err)
	}
	if c.To, err = parseDay(q.Get("to")); err != nil {
		return c, fmt.Errorf("to: %w", err)
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From) {
		return c, fmt.Errorf("to %s is before from %s", q.Get("to"), q.Get("from"))
	}
	c.Entities = splitList(q["entity"])
	c.Categories = splitList(q["category"])
	return c, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(table.DateLayout, s)
}

func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
