package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/gridhall/ghatz/internal/models"
)

// Scheduler pre-warms the table cache on a cron schedule so page requests
// rarely wait on the spreadsheet.
type Scheduler struct {
	loader  *Loader
	domains []models.Domain
	spec    string
}

func NewScheduler(loader *Loader, spec string, domains []models.Domain) *Scheduler {
	if len(domains) == 0 {
		domains = models.AllDomains
	}
	return &Scheduler{loader: loader, domains: domains, spec: spec}
}

// Run refreshes every domain once, then on each tick of the cron spec until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	s.RefreshAll(ctx)
	c.Start()
	log.Printf("scheduler: refreshing on %q", s.spec)

	<-ctx.Done()
	log.Println("scheduler: shutting down")
	<-c.Stop().Done()
	return nil
}

// RefreshAll reloads every domain. One domain failing does not stop the rest.
func (s *Scheduler) RefreshAll(ctx context.Context) {
	ok := 0
	for _, d := range s.domains {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.loader.Refresh(ctx, d); err != nil {
			log.Printf("scheduler: refresh %s: %v", d, err)
			continue
		}
		ok++
	}
	log.Printf("scheduler: refreshed %d of %d domains", ok, len(s.domains))
}
