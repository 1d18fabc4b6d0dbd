package recipe

import (
	"context"
	"time"
)

// JobStore persists scrape jobs keyed by normalized URL.
type JobStore interface {
	// Claim atomically creates or takes over the job for url. claimed is
	// false when the caller must not start work: the job is already
	// processing, or it succeeded and the cached recipe should be served.
	// Taking over a terminal job increments RetryCount.
	Claim(ctx context.Context, url string) (job ScrapeJob, claimed bool, err error)
	// Reclaim moves a terminal job back to processing for an explicit retry,
	// incrementing RetryCount exactly once. Returns ErrJobRunning while the
	// job is still processing.
	Reclaim(ctx context.Context, id string) (ScrapeJob, error)
	Complete(ctx context.Context, id string, recipeID string) error
	Fail(ctx context.Context, id string, message string) error
	Get(ctx context.Context, id string) (ScrapeJob, error)
	GetByURL(ctx context.Context, url string) (ScrapeJob, error)
}

// RecipeStore persists extracted recipes.
type RecipeStore interface {
	Save(ctx context.Context, r Recipe) error
	Get(ctx context.Context, id string) (Recipe, error)
}

// BlobStore archives fetched page HTML for later inspection.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (uri string, err error)
}

// Publisher fans out scrape completion events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (id string, err error)
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// Queue hands claimed jobs to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints job and recipe identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints page bodies for archive paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}
