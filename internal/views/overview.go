package views

import (
	"context"
	"log"
	"time"

	"github.com/gridhall/ghatz/internal/filter"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/sheets"
)

// DomainOverview summarizes one domain for the data overview page.
type DomainOverview struct {
	Domain   models.Domain `json:"domain"`
	Title    string        `json:"title"`
	Rows     int           `json:"rows"`
	Dropped  int           `json:"dropped"`
	MinDate  *time.Time    `json:"min_date,omitempty"`
	MaxDate  *time.Time    `json:"max_date,omitempty"`
	LoadedAt *time.Time    `json:"loaded_at,omitempty"`
	LastRun  *LastRun      `json:"last_run,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type LastRun struct {
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Overview loads every domain and summarizes it. A domain whose worksheet is
// missing or malformed is reported in its Error field and does not affect the
// others. A ConnectionError stops the overview at once and is returned with
// no summaries. Last runs are read after loading so they reflect this call.
func Overview(ctx context.Context, l *ingest.Loader, domains []models.Domain) ([]DomainOverview, error) {
	out := make([]DomainOverview, 0, len(domains))
	for _, d := range domains {
		o := DomainOverview{Domain: d}
		if def, err := l.Definition(d); err == nil {
			o.Title = def.Title
		}
		loaded, err := l.Load(ctx, d)
		if sheets.IsConnectionError(err) {
			return nil, err
		}
		if err != nil {
			o.Error = err.Error()
		} else {
			o.Rows = loaded.Table.Len()
			o.Dropped = loaded.Report.RowsDropped()
			at := loaded.LoadedAt
			o.LoadedAt = &at
			opts := filter.OptionsFor(loaded.Table, loaded.Definition.Roles)
			o.MinDate, o.MaxDate = opts.MinDate, opts.MaxDate
		}
		out = append(out, o)
	}

	st := l.Store()
	if st == nil {
		return out, nil
	}
	latest, err := st.LatestLoadRuns()
	if err != nil {
		log.Printf("views: latest load runs: %v", err)
		return out, nil
	}
	for i := range out {
		if r, ok := latest[string(out[i].Domain)]; ok {
			out[i].LastRun = &LastRun{StartedAt: r.StartedAt, Source: r.Source, Success: r.Success, Error: r.ErrorMessage.String}
		}
	}
	return out, nil
}
