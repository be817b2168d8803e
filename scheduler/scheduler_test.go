package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"holidaydeals/models"
)

type fakeSource struct {
	urls []string
	err  error
}

func (f *fakeSource) ListStaleDealURLs(_ context.Context, _ int64, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.urls) > limit {
		return f.urls[:limit], nil
	}
	return f.urls, nil
}

type fakeBatcher struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeBatcher) ScrapeBatch(_ context.Context, urls []string) (*models.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, urls)
	if f.err != nil {
		return nil, f.err
	}
	return &models.BatchResult{
		RunID:   int64(len(f.batches)),
		Summary: models.BatchSummary{Total: len(urls), Successful: len(urls)},
	}, nil
}

func (f *fakeBatcher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestRefreshScrapesStaleURLs(t *testing.T) {
	source := &fakeSource{urls: []string{
		"https://www.jet2holidays.com/beach/spain/t/r/a",
		"https://www.jet2holidays.com/beach/spain/t/r/b",
	}}
	batcher := &fakeBatcher{}

	s := New(source, batcher, 1, Options{BatchSize: 10})
	s.refresh(context.Background())

	if len(batcher.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batcher.batches))
	}
	if len(batcher.batches[0]) != 2 {
		t.Errorf("batch = %v, want both stale urls", batcher.batches[0])
	}
}

func TestRefreshRespectsBatchSize(t *testing.T) {
	var urls []string
	for i := 0; i < 30; i++ {
		urls = append(urls, fmt.Sprintf("https://www.jet2holidays.com/beach/spain/t/r/h%d", i))
	}
	source := &fakeSource{urls: urls}
	batcher := &fakeBatcher{}

	s := New(source, batcher, 1, Options{BatchSize: 5})
	s.refresh(context.Background())

	if len(batcher.batches) != 1 || len(batcher.batches[0]) != 5 {
		t.Fatalf("batches = %v, want one batch of 5", batcher.batches)
	}
}

func TestRefreshSkipsEmptyStore(t *testing.T) {
	batcher := &fakeBatcher{}
	s := New(&fakeSource{}, batcher, 1, Options{BatchSize: 5})
	s.refresh(context.Background())

	if len(batcher.batches) != 0 {
		t.Errorf("no batch expected with nothing stored, got %v", batcher.batches)
	}
}

func TestStartWithoutSchedule(t *testing.T) {
	s := New(&fakeSource{}, &fakeBatcher{}, 1, Options{})
	started, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started {
		t.Error("scheduler should report disabled without cron or interval")
	}
}

func TestStartWithBadCron(t *testing.T) {
	s := New(&fakeSource{}, &fakeBatcher{}, 1, Options{CronExpr: "not a cron"})
	if _, err := s.Start(context.Background()); err == nil {
		t.Error("invalid cron expression should error")
	}
	s.Stop()
}

func TestIntervalTicker(t *testing.T) {
	source := &fakeSource{urls: []string{"https://www.jet2holidays.com/beach/spain/t/r/a"}}
	batcher := &fakeBatcher{}

	s := New(source, batcher, 1, Options{Interval: 20 * time.Millisecond, BatchSize: 5})
	started, err := s.Start(context.Background())
	if err != nil || !started {
		t.Fatalf("Start: started=%v err=%v", started, err)
	}
	defer s.Stop()

	deadline := time.After(500 * time.Millisecond)
	for batcher.batchCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("ticker never fired a refresh")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
