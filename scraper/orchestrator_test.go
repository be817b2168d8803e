package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"holidaydeals/storage"
)

// fakeRenderer serves canned HTML per URL so batches run without a
// browser.
type fakeRenderer struct {
	acquireErr error
	pages      map[string]string
	errs       map[string]error
	released   int
}

func (f *fakeRenderer) Acquire() error { return f.acquireErr }

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	if err, ok := f.errs[url]; ok {
		return "", &RenderError{URL: url, Cause: err}
	}
	html, ok := f.pages[url]
	if !ok {
		return "", &RenderError{URL: url, Cause: fmt.Errorf("no page for %s", url)}
	}
	return html, nil
}

func (f *fakeRenderer) Release() { f.released++ }

func dealPage(hotel string, price int) string {
	return fmt.Sprintf(`<html><body>
		<h1>%s</h1>
		<p>All Inclusive</p>
		<p>Payable to Jet2holidays <b>£%d</b></p>
	</body></html>`, hotel, price)
}

func newTestStore(t *testing.T) (*storage.SQLiteStore, int64) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	providerID, err := store.EnsureProvider(context.Background(), "Jet2holidays", "jet2", Jet2BaseURL, "BFS")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return store, providerID
}

func TestScrapeBatchMixedOutcomes(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	goodURL := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-best-jacaranda?airport=7&date=10-06-2025&duration=7&board=4"
	renderFailURL := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-gone"
	emptyURL := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-empty"

	renderer := &fakeRenderer{
		pages: map[string]string{
			goodURL:  dealPage("Hotel Best Jacaranda", 1398),
			emptyURL: "<html><body><p>page under construction</p></body></html>",
		},
		errs: map[string]error{
			renderFailURL: fmt.Errorf("net::ERR_TIMED_OUT"),
		},
	}

	orch := NewOrchestrator(store, renderer, providerID, time.Millisecond)
	result, err := orch.ScrapeBatch(ctx, []string{goodURL, renderFailURL, emptyURL})
	if err != nil {
		t.Fatalf("ScrapeBatch: %v", err)
	}

	if result.Summary.Total != 3 || result.Summary.Successful != 1 || result.Summary.Failed != 2 {
		t.Fatalf("summary = %+v, want total 3, successful 1, failed 2", result.Summary)
	}
	if result.Summary.DealsNew != 1 {
		t.Errorf("dealsNew = %d, want 1", result.Summary.DealsNew)
	}

	if len(result.Results) != 3 {
		t.Fatalf("got %d results, want one per input URL", len(result.Results))
	}
	if !result.Results[0].Success || result.Results[0].DealID == nil {
		t.Errorf("good URL result = %+v", result.Results[0])
	}
	if result.Results[1].Success || result.Results[1].Error == "" {
		t.Errorf("render-failure result = %+v", result.Results[1])
	}
	if result.Results[2].Success || result.Results[2].Error != ErrMissingData.Error() {
		t.Errorf("empty-page result = %+v, want validation failure", result.Results[2])
	}

	run, err := store.GetRun(ctx, result.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Status != "completed" {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if run.DealsFound != 1 || run.DealsNew != 1 || run.DealsUpdated != 0 {
		t.Errorf("run counters = found %d new %d updated %d", run.DealsFound, run.DealsNew, run.DealsUpdated)
	}
	if run.StartedAt == nil || run.CompletedAt == nil {
		t.Errorf("run timestamps missing: %+v", run)
	}

	deal, err := store.FindDealByURL(ctx, goodURL)
	if err != nil || deal == nil {
		t.Fatalf("FindDealByURL: %v, %v", deal, err)
	}
	if deal.Title != "Hotel Best Jacaranda" {
		t.Errorf("deal title = %q", deal.Title)
	}
	if deal.Price != 1398 {
		t.Errorf("deal price = %v, want 1398", deal.Price)
	}
	if deal.BoardBasis == nil || *deal.BoardBasis != "All Inclusive" {
		t.Errorf("deal board basis = %v", deal.BoardBasis)
	}
	if deal.DepartureAirport == nil || *deal.DepartureAirport != "MAN" {
		t.Errorf("deal airport = %v, want MAN from URL", deal.DepartureAirport)
	}
	if deal.ReturnDate == nil || *deal.ReturnDate != "2025-06-17" {
		t.Errorf("deal return date = %v, want 2025-06-17", deal.ReturnDate)
	}

	if renderer.released == 0 {
		t.Error("browser was never released after the batch")
	}
}

func TestScrapeBatchRescrapeUpdatesInPlace(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	url := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-best-jacaranda?airport=7&date=10-06-2025&duration=7&board=4"
	renderer := &fakeRenderer{
		pages: map[string]string{url: dealPage("Hotel Best Jacaranda", 1398)},
	}
	orch := NewOrchestrator(store, renderer, providerID, time.Millisecond)

	first, err := orch.ScrapeBatch(ctx, []string{url})
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if first.Summary.DealsNew != 1 {
		t.Fatalf("first batch dealsNew = %d, want 1", first.Summary.DealsNew)
	}

	before, err := store.FindDealByURL(ctx, url)
	if err != nil || before == nil {
		t.Fatalf("deal missing after first batch: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	renderer.pages[url] = dealPage("Hotel Best Jacaranda", 1250)

	second, err := orch.ScrapeBatch(ctx, []string{url})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if second.Summary.DealsNew != 0 {
		t.Errorf("second batch dealsNew = %d, want 0", second.Summary.DealsNew)
	}

	run, err := store.GetRun(ctx, second.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.DealsFound != 1 || run.DealsUpdated != 1 {
		t.Errorf("second run counters = found %d updated %d, want 1/1", run.DealsFound, run.DealsUpdated)
	}

	after, err := store.FindDealByURL(ctx, url)
	if err != nil || after == nil {
		t.Fatalf("deal missing after second batch: %v", err)
	}
	if after.ID != before.ID {
		t.Errorf("re-scrape created a new row: %d -> %d", before.ID, after.ID)
	}
	if after.Price != 1250 {
		t.Errorf("price = %v, want updated 1250", after.Price)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed on update: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
}

// overlapRenderer tracks concurrent renders and whether Release fired
// while a render was still in flight.
type overlapRenderer struct {
	mu                sync.Mutex
	inFlight          int
	maxInFlight       int
	releasedMidRender bool
}

func (r *overlapRenderer) Acquire() error { return nil }

func (r *overlapRenderer) Render(_ context.Context, _ string) (string, error) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	r.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()
	return dealPage("Hotel Best Jacaranda", 999), nil
}

func (r *overlapRenderer) Release() {
	r.mu.Lock()
	if r.inFlight > 0 {
		r.releasedMidRender = true
	}
	r.mu.Unlock()
}

func TestScrapeBatchesSerializeAcrossCallers(t *testing.T) {
	store, providerID := newTestStore(t)
	renderer := &overlapRenderer{}
	orch := NewOrchestrator(store, renderer, providerID, time.Millisecond)

	urls := []string{
		"https://www.jet2holidays.com/beach/spain/tenerife/r/caller-one",
		"https://www.jet2holidays.com/beach/spain/tenerife/r/caller-two",
	}

	var wg sync.WaitGroup
	errs := make([]error, len(urls))
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			_, errs[i] = orch.ScrapeBatch(context.Background(), []string{u})
		}(i, u)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if renderer.maxInFlight != 1 {
		t.Errorf("max concurrent renders = %d, want batches fully serialized", renderer.maxInFlight)
	}
	if renderer.releasedMidRender {
		t.Error("browser released while another batch's render was in flight")
	}
}

func TestScrapeBatchSizeLimits(t *testing.T) {
	store, providerID := newTestStore(t)
	orch := NewOrchestrator(store, &fakeRenderer{}, providerID, time.Millisecond)

	if _, err := orch.ScrapeBatch(context.Background(), nil); err == nil {
		t.Error("empty batch should be rejected")
	}

	urls := make([]string, MaxBatchURLs+1)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.jet2holidays.com/beach/spain/tenerife/r/h%d", i)
	}
	if _, err := orch.ScrapeBatch(context.Background(), urls); err == nil {
		t.Error("oversized batch should be rejected")
	}

	if _, err := orch.ScrapeBatch(context.Background(), []string{"/beach/spain/tenerife"}); err == nil {
		t.Error("relative URL should be rejected")
	}
}

func TestScrapeBatchBrowserAcquireFailure(t *testing.T) {
	store, providerID := newTestStore(t)
	ctx := context.Background()

	renderer := &fakeRenderer{acquireErr: fmt.Errorf("chromium executable not found")}
	orch := NewOrchestrator(store, renderer, providerID, time.Millisecond)

	_, err := orch.ScrapeBatch(ctx, []string{"https://www.jet2holidays.com/beach/spain/tenerife/r/h"})
	if err == nil {
		t.Fatal("acquire failure must fail the batch")
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v, %v", runs, err)
	}
	if runs[0].Status != "failed" {
		t.Errorf("run status = %q, want failed", runs[0].Status)
	}
	if runs[0].ErrorMessage == "" {
		t.Error("failed run should carry an error message")
	}
}
