package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"holidaydeals/models"
)

const (
	MinBatchURLs = 1
	MaxBatchURLs = 50

	defaultRequestDelay = 1 * time.Second
)

// DealStore is the storage contract the orchestrator consumes: deal
// lookup/insert/update keyed by canonical URL plus scrape-run lifecycle.
type DealStore interface {
	FindDealByURL(ctx context.Context, url string) (*models.Deal, error)
	InsertDeal(ctx context.Context, c *models.DealCandidate, providerID, runID int64) (*models.Deal, error)
	UpdateDeal(ctx context.Context, id int64, c *models.DealCandidate) (*models.Deal, error)
	CreateRun(ctx context.Context, providerID int64) (int64, error)
	UpdateRun(ctx context.Context, run *models.ScrapeRun) error
	Log(ctx context.Context, runID *int64, level models.LogLevel, message, url string) error
}

// Orchestrator runs scrape batches: one fully awaited
// render/extract/reconcile/upsert cycle per URL, serially, with a
// politeness delay in between. The browser is shared across the batch
// and released when it ends, success or failure. Batches themselves
// are serialized here, so callers (HTTP, scheduler, CLI) can overlap
// without one batch's release tearing down another's render.
type Orchestrator struct {
	mu         sync.Mutex
	store      DealStore
	renderer   Renderer
	handler    *Jet2Handler
	providerID int64
	delay      time.Duration
}

func NewOrchestrator(store DealStore, renderer Renderer, providerID int64, delay time.Duration) *Orchestrator {
	if delay <= 0 {
		delay = defaultRequestDelay
	}
	return &Orchestrator{
		store:      store,
		renderer:   renderer,
		handler:    NewJet2Handler(renderer),
		providerID: providerID,
		delay:      delay,
	}
}

// ScrapeBatch processes an ordered list of listing URLs and returns a
// per-URL result for every input plus an aggregate summary. Individual
// URL failures never abort the batch; only a failed browser acquisition
// fails it outright.
func (o *Orchestrator) ScrapeBatch(ctx context.Context, urls []string) (*models.BatchResult, error) {
	if len(urls) < MinBatchURLs || len(urls) > MaxBatchURLs {
		return nil, fmt.Errorf("batch size must be between %d and %d URLs, got %d", MinBatchURLs, MaxBatchURLs, len(urls))
	}
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil || !parsed.IsAbs() {
			return nil, fmt.Errorf("not an absolute URL: %q", u)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	runID, err := o.store.CreateRun(ctx, o.providerID)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	now := time.Now()
	run := &models.ScrapeRun{
		ID:         runID,
		ProviderID: o.providerID,
		Status:     models.RunStatusRunning,
		StartedAt:  &now,
	}
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	defer o.renderer.Release()

	if err := o.renderer.Acquire(); err != nil {
		o.failRun(ctx, run, fmt.Sprintf("browser unavailable: %v", err))
		return nil, fmt.Errorf("acquire browser: %w", err)
	}

	o.logRun(ctx, run.ID, models.LogLevelInfo, fmt.Sprintf("Starting batch of %d URLs", len(urls)), "")

	results := make([]models.URLResult, 0, len(urls))
	for i, u := range urls {
		if i > 0 {
			time.Sleep(o.delay)
		}

		result := o.processURL(ctx, run, u)
		results = append(results, result)

		if err := o.store.UpdateRun(ctx, run); err != nil {
			o.logRun(ctx, run.ID, models.LogLevelWarn, fmt.Sprintf("run update failed: %v", err), u)
		}
	}

	done := time.Now()
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &done
	run.DealsUpdated = run.DealsFound - run.DealsNew
	if err := o.store.UpdateRun(ctx, run); err != nil {
		log.Printf("Warning: failed to finalize run %d: %v", run.ID, err)
	}

	summary := models.BatchSummary{Total: len(urls), DealsNew: run.DealsNew}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	o.logRun(ctx, run.ID, models.LogLevelInfo,
		fmt.Sprintf("Batch complete: %d/%d successful, %d new deals", summary.Successful, summary.Total, summary.DealsNew), "")

	return &models.BatchResult{
		RunID:   run.ID,
		Summary: summary,
		Results: results,
	}, nil
}

// processURL runs one URL's full cycle. All failures are converted to a
// result entry at this boundary; nothing escapes to abort the batch.
func (o *Orchestrator) processURL(ctx context.Context, run *models.ScrapeRun, url string) models.URLResult {
	candidate, err := o.handler.ScrapeURL(ctx, url)
	if err != nil {
		var rerr *RenderError
		if errors.As(err, &rerr) {
			o.logRun(ctx, run.ID, models.LogLevelError, fmt.Sprintf("render failed: %v", rerr.Cause), url)
		} else {
			o.logRun(ctx, run.ID, models.LogLevelError, err.Error(), url)
		}
		return models.URLResult{URL: url, Success: false, Error: err.Error()}
	}

	if err := Validate(candidate); err != nil {
		o.logRun(ctx, run.ID, models.LogLevelWarn, err.Error(), url)
		return models.URLResult{URL: url, Success: false, Error: err.Error()}
	}

	existing, err := o.store.FindDealByURL(ctx, url)
	if err != nil {
		return models.URLResult{URL: url, Success: false, Error: fmt.Sprintf("store lookup: %v", err)}
	}

	var deal *models.Deal
	if existing != nil {
		deal, err = o.store.UpdateDeal(ctx, existing.ID, candidate)
		if err != nil {
			return models.URLResult{URL: url, Success: false, Error: fmt.Sprintf("store update: %v", err)}
		}
		run.DealsFound++
	} else {
		deal, err = o.store.InsertDeal(ctx, candidate, o.providerID, run.ID)
		if err != nil {
			return models.URLResult{URL: url, Success: false, Error: fmt.Sprintf("store insert: %v", err)}
		}
		run.DealsFound++
		run.DealsNew++
	}

	return models.URLResult{URL: url, Success: true, DealID: &deal.ID}
}

func (o *Orchestrator) failRun(ctx context.Context, run *models.ScrapeRun, msg string) {
	now := time.Now()
	run.Status = models.RunStatusFailed
	run.CompletedAt = &now
	run.ErrorMessage = msg
	if err := o.store.UpdateRun(ctx, run); err != nil {
		log.Printf("Warning: failed to mark run %d failed: %v", run.ID, err)
	}
}

func (o *Orchestrator) logRun(ctx context.Context, runID int64, level models.LogLevel, message, url string) {
	log.Printf("[%s] run %d: %s %s", level, runID, message, url)
	if err := o.store.Log(ctx, &runID, level, message, url); err != nil {
		log.Printf("Warning: scrape log write failed: %v", err)
	}
}
