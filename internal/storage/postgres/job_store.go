package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

const jobColumns = `id, url, status, retry_count, error_message, recipe_id, created_at, updated_at`

// claimQuery is a single atomic create-or-restart keyed on the unique url.
// The conditional DO UPDATE only fires for failed jobs; a conflicting
// processing or success row yields no returned row, which signals the
// caller to read the existing job instead.
const claimQuery = `
INSERT INTO scrape_jobs (id, url, status, retry_count, error_message, recipe_id, created_at, updated_at)
VALUES ($1, $2, 'processing', 0, '', '', now(), now())
ON CONFLICT (url) DO UPDATE
SET status = 'processing',
    retry_count = scrape_jobs.retry_count + 1,
    error_message = '',
    updated_at = now()
WHERE scrape_jobs.status = 'failed'
RETURNING ` + jobColumns

const reclaimQuery = `
UPDATE scrape_jobs
SET status = 'processing',
    retry_count = retry_count + 1,
    error_message = '',
    updated_at = now()
WHERE id = $1 AND status <> 'processing'
RETURNING ` + jobColumns

// JobStore persists scrape jobs in the scrape_jobs table.
type JobStore struct {
	pool DB
	ids  recipe.IDGenerator
}

// NewJobStore constructs a JobStore over a shared pool.
func NewJobStore(pool DB, ids recipe.IDGenerator) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &JobStore{pool: pool, ids: ids}, nil
}

// Claim creates a processing job for url or takes over a failed one. When
// an existing job is already processing or succeeded, it is returned with
// claimed=false and nothing is modified.
func (s *JobStore) Claim(ctx context.Context, url string) (recipe.ScrapeJob, bool, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return recipe.ScrapeJob{}, false, fmt.Errorf("new job id: %w", err)
	}

	job, err := scanJob(s.pool.QueryRow(ctx, claimQuery, id, url))
	if err == nil {
		return job, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return recipe.ScrapeJob{}, false, fmt.Errorf("claim job: %w", err)
	}

	existing, err := s.GetByURL(ctx, url)
	if err != nil {
		return recipe.ScrapeJob{}, false, fmt.Errorf("load conflicting job: %w", err)
	}
	return existing, false, nil
}

// Reclaim restarts a terminal job by id. Processing jobs are rejected with
// recipe.ErrJobRunning.
func (s *JobStore) Reclaim(ctx context.Context, id string) (recipe.ScrapeJob, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, reclaimQuery, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return recipe.ScrapeJob{}, fmt.Errorf("reclaim job: %w", err)
	}

	// Nothing updated: the job is either absent or still processing.
	current, err := s.Get(ctx, id)
	if err != nil {
		return recipe.ScrapeJob{}, err
	}
	if current.Status == recipe.JobStatusProcessing {
		return recipe.ScrapeJob{}, recipe.ErrJobRunning
	}
	return recipe.ScrapeJob{}, fmt.Errorf("reclaim job %s: unexpected status %s", id, current.Status)
}

// Complete marks a job successful with its stored recipe id.
func (s *JobStore) Complete(ctx context.Context, id, recipeID string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs
SET status = 'success', recipe_id = $2, error_message = '', updated_at = now()
WHERE id = $1`, id, recipeID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrJobNotFound
	}
	return nil
}

// Fail marks a job failed with the user-facing message.
func (s *JobStore) Fail(ctx context.Context, id, message string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE scrape_jobs
SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrJobNotFound
	}
	return nil
}

// Get fetches a job by id.
func (s *JobStore) Get(ctx context.Context, id string) (recipe.ScrapeJob, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.ScrapeJob{}, recipe.ErrJobNotFound
	}
	if err != nil {
		return recipe.ScrapeJob{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByURL fetches a job by its unique url.
func (s *JobStore) GetByURL(ctx context.Context, url string) (recipe.ScrapeJob, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scrape_jobs WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.ScrapeJob{}, recipe.ErrJobNotFound
	}
	if err != nil {
		return recipe.ScrapeJob{}, fmt.Errorf("get job by url: %w", err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (recipe.ScrapeJob, error) {
	var job recipe.ScrapeJob
	err := row.Scan(
		&job.ID,
		&job.URL,
		&job.Status,
		&job.RetryCount,
		&job.ErrorMessage,
		&job.RecipeID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return recipe.ScrapeJob{}, err
	}
	return job, nil
}
