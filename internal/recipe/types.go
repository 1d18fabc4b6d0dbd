package recipe

import (
	"net/http"
	"time"
)

// JobStatus tracks a scrape job through its lifecycle.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFailed     JobStatus = "failed"
)

// ScrapeJob is the persistent record clients poll while an extraction runs.
// URL holds the normalized form and acts as the unique key: one job per page.
// RetryCount only ever grows; it survives retries and re-submissions.
type ScrapeJob struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Status       JobStatus `json:"status"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RecipeID     string    `json:"recipe_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ingredient is one parsed ingredient line.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
}

// InstructionStep numbers start at 1 and run sequentially with no gaps.
type InstructionStep struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Recipe is the extraction result persisted when a job succeeds.
type Recipe struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Image          string            `json:"image,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	SourceURL      string            `json:"source_url"`
	SourceName     string            `json:"source_name,omitempty"`
	ReadyInMinutes int               `json:"ready_in_minutes,omitempty"`
	Servings       int               `json:"servings,omitempty"`
	Ingredients    []Ingredient      `json:"ingredients"`
	Instructions   []InstructionStep `json:"instructions"`
	Cuisines       []string          `json:"cuisines,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Candidate is a strategy's extraction output before gate validation and
// final assembly. Strategies normalize fields as they fill it; instruction
// texts stay unnumbered until the recipe is built.
type Candidate struct {
	Title          string
	Image          string
	Description    string
	ReadyInMinutes int
	Servings       int
	Ingredients    []Ingredient
	Instructions   []string
	Cuisines       []string
	Tags           []string
}

// FetchRequest asks a fetcher for one page.
type FetchRequest struct {
	JobID   string
	URL     string
	Headers map[string]string
}

// FetchResponse carries the outcome of a fetch attempt. Body is a copy owned
// by the caller. Rendered marks responses produced by the headless tier.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// QueueItem hands one claimed job to the worker pool.
type QueueItem struct {
	JobID     string `json:"job_id"`
	URL       string `json:"url"`
	Attempt   int    `json:"attempt"`
	Submitted int64  `json:"submitted"`
}
