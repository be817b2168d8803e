package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"holidaydeals/models"
)

// URLSource lists deal URLs due for a refresh, stalest first.
type URLSource interface {
	ListStaleDealURLs(ctx context.Context, providerID int64, limit int) ([]string, error)
}

// Batcher runs a scrape batch. Satisfied by scraper.Orchestrator.
type Batcher interface {
	ScrapeBatch(ctx context.Context, urls []string) (*models.BatchResult, error)
}

// Scheduler periodically re-scrapes stored deals so prices and
// availability stay current. It supports either a cron expression or a
// fixed interval; cron wins when both are set.
type Scheduler struct {
	source     URLSource
	batcher    Batcher
	providerID int64
	batchSize  int

	cronExpr string
	interval time.Duration

	cron   *cron.Cron
	cancel context.CancelFunc
}

type Options struct {
	CronExpr  string
	Interval  time.Duration
	BatchSize int
}

func New(source URLSource, batcher Batcher, providerID int64, opts Options) *Scheduler {
	batchSize := opts.BatchSize
	if batchSize <= 0 || batchSize > 50 {
		batchSize = 20
	}
	return &Scheduler{
		source:     source,
		batcher:    batcher,
		providerID: providerID,
		batchSize:  batchSize,
		cronExpr:   opts.CronExpr,
		interval:   opts.Interval,
	}
}

// Start begins the refresh schedule. Returns false when no schedule is
// configured.
func (s *Scheduler) Start(ctx context.Context) (bool, error) {
	if s.cronExpr != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(s.cronExpr, func() {
			s.refresh(ctx)
		})
		if err != nil {
			return false, err
		}
		s.cron.Start()
		log.Printf("Scheduler: refresh on cron %q", s.cronExpr)
		return true, nil
	}

	if s.interval > 0 {
		tickCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go s.tickLoop(tickCtx)
		log.Printf("Scheduler: refresh every %s", s.interval)
		return true, nil
	}

	return false, nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh re-scrapes the least recently updated deals in one batch.
func (s *Scheduler) refresh(ctx context.Context) {
	urls, err := s.source.ListStaleDealURLs(ctx, s.providerID, s.batchSize)
	if err != nil {
		log.Printf("Scheduler: listing stale deals failed: %v", err)
		return
	}
	if len(urls) == 0 {
		log.Printf("Scheduler: no deals to refresh")
		return
	}

	result, err := s.batcher.ScrapeBatch(ctx, urls)
	if err != nil {
		log.Printf("Scheduler: refresh batch failed: %v", err)
		return
	}
	log.Printf("Scheduler: refreshed %d/%d deals (run %d)",
		result.Summary.Successful, result.Summary.Total, result.RunID)
}
