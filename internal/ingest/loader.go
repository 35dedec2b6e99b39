package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gridhall/ghatz/internal/cache"
	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/metrics"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/sheets"
	"github.com/gridhall/ghatz/internal/store"
	"github.com/gridhall/ghatz/internal/table"
)

// Loaded is a cleaned domain table. Callers must not mutate Table; it is
// shared through the cache.
type Loaded struct {
	Definition Definition
	Table      *table.Table
	Report     Report
	Warnings   []calc.Warning
	LoadedAt   time.Time
}

// Loader fetches, cleans and caches domain tables.
type Loader struct {
	src        sheets.Source
	store      *store.Store
	cache      *cache.TTL[*Loaded]
	worksheets map[models.Domain]string
	orders     map[models.Domain]DateOrder
	now        func() time.Time
}

// NewLoader creates a loader. store may be nil to skip the load audit;
// worksheets overrides default worksheet names per domain.
func NewLoader(src sheets.Source, st *store.Store, c *cache.TTL[*Loaded], worksheets map[models.Domain]string) *Loader {
	if c == nil {
		c = cache.New[*Loaded](cache.DefaultTTL)
	}
	return &Loader{src: src, store: st, cache: c, worksheets: worksheets, now: time.Now}
}

// SetDateOrders overrides how each listed domain reads its date columns.
// Call it before the first Load.
func (l *Loader) SetDateOrders(orders map[models.Domain]DateOrder) {
	l.orders = orders
}

// Definition returns a domain's definition with any worksheet or date order
// override applied.
func (l *Loader) Definition(d models.Domain) (Definition, error) {
	def, err := Lookup(d)
	if err != nil {
		return def, err
	}
	def = def.WithWorksheet(l.worksheets[d])
	if order, ok := l.orders[d]; ok {
		def = def.WithDateOrder(order)
	}
	return def, nil
}

// Load returns the cached table for a domain, loading it on a miss.
func (l *Loader) Load(ctx context.Context, d models.Domain) (*Loaded, error) {
	def, err := l.Definition(d)
	if err != nil {
		return nil, err
	}
	return l.cache.Get(ctx, string(d), func(ctx context.Context) (*Loaded, error) {
		return l.load(ctx, def)
	})
}

// Refresh loads a domain from the source and replaces the cached table. On
// failure the previous table stays cached.
func (l *Loader) Refresh(ctx context.Context, d models.Domain) (*Loaded, error) {
	def, err := l.Definition(d)
	if err != nil {
		return nil, err
	}
	if r, ok := l.src.(interface{ Refresh() }); ok {
		r.Refresh()
	}
	loaded, err := l.load(ctx, def)
	if err != nil {
		return nil, err
	}
	l.cache.Set(string(d), loaded)
	return loaded, nil
}

// Invalidate drops a domain's cached table.
func (l *Loader) Invalidate(d models.Domain) {
	l.cache.Invalidate(string(d))
}

func (l *Loader) Cached(d models.Domain) (*Loaded, bool) {
	return l.cache.Peek(string(d))
}

func (l *Loader) Store() *store.Store { return l.store }

func (l *Loader) load(ctx context.Context, def Definition) (*Loaded, error) {
	ws := def.Schema.Worksheet
	var run *store.LoadRun
	if l.store != nil {
		var err error
		if run, err = l.store.StartLoadRun(string(def.Domain), ws, l.src.Kind()); err != nil {
			log.Printf("loader: start load run %s: %v", def.Domain, err)
		}
	}
	fail := func(err error) (*Loaded, error) {
		if run != nil {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			if cerr := l.store.CompleteLoadRun(run); cerr != nil {
				log.Printf("loader: complete load run %s: %v", def.Domain, cerr)
			}
		}
		return nil, err
	}

	sheet, err := l.src.Fetch(ctx, ws)
	if err != nil {
		return fail(fmt.Errorf("load %s: %w", def.Domain, err))
	}
	if run != nil {
		if payload, err := sheet.Payload(); err == nil {
			if _, err := l.store.StoreRawPayload(&run.ID, string(def.Domain), ws, payload); err != nil {
				log.Printf("loader: store raw payload %s: %v", def.Domain, err)
			}
		}
	}

	t, report, warns, err := Prepare(def, sheet.Records())
	if err != nil {
		return fail(fmt.Errorf("load %s: %w", def.Domain, err))
	}

	metrics.RowsCleaned.WithLabelValues(string(def.Domain)).Add(float64(report.RowsKept))
	metrics.RowsDropped.WithLabelValues(string(def.Domain)).Add(float64(report.RowsDropped()))
	log.Printf("loader: %s: kept %d of %d rows (%d dropped)", def.Domain, report.RowsKept, report.RowsIn, report.RowsDropped())
	for _, w := range report.Warnings {
		log.Printf("loader: %s: %s", def.Domain, w)
	}
	for _, w := range warns {
		log.Printf("loader: %s: %s", def.Domain, w)
	}

	if run != nil {
		run.RowsIn = sql.NullInt64{Int64: int64(report.RowsIn), Valid: true}
		run.RowsKept = sql.NullInt64{Int64: int64(report.RowsKept), Valid: true}
		run.RowsDropped = sql.NullInt64{Int64: int64(report.RowsDropped()), Valid: true}
		run.Warnings = sql.NullInt64{Int64: int64(len(report.Warnings) + len(warns)), Valid: true}
		run.Success = true
		if err := l.store.CompleteLoadRun(run); err != nil {
			log.Printf("loader: complete load run %s: %v", def.Domain, err)
		}
	}

	return &Loaded{Definition: def, Table: t, Report: report, Warnings: warns, LoadedAt: l.now()}, nil
}
