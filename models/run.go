package models

import "time"

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun tracks one batch execution over a set of URLs.
type ScrapeRun struct {
	ID           int64      `json:"id" db:"id"`
	ProviderID   int64      `json:"provider_id" db:"provider_id"`
	Status       RunStatus  `json:"status" db:"status"`
	DealsFound   int        `json:"deals_found" db:"deals_found"`
	DealsNew     int        `json:"deals_new" db:"deals_new"`
	DealsUpdated int        `json:"deals_updated" db:"deals_updated"`
	StartedAt    *time.Time `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage string     `json:"error_message" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// URLResult is the per-URL outcome within a batch.
type URLResult struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	DealID  *int64 `json:"recordId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch's outcomes.
type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	DealsNew   int `json:"newRecords"`
}

// BatchResult is what the batch entry point returns to its caller.
type BatchResult struct {
	RunID   int64        `json:"jobId"`
	Summary BatchSummary `json:"summary"`
	Results []URLResult  `json:"results"`
}
