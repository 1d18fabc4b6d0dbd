package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// MaxBulkURLs caps a single bulk submission.
const MaxBulkURLs = 10

// Handle is what submission and status calls return: the job, plus the
// recipe once the job succeeded.
type Handle struct {
	Job    recipe.ScrapeJob
	Recipe *recipe.Recipe
}

// Service exposes the scrape operations backing the HTTP API. One job exists
// per normalized URL; claiming decides whether a submission starts work or
// rides an existing job.
type Service struct {
	jobs      recipe.JobStore
	recipes   recipe.RecipeStore
	queue     recipe.Queue
	blocklist *recipe.DomainBlocklist
	clock     recipe.Clock
	logger    *zap.Logger
}

// NewService wires the service dependencies. A nil blocklist admits every
// host.
func NewService(
	jobs recipe.JobStore,
	recipes recipe.RecipeStore,
	queue recipe.Queue,
	blocklist *recipe.DomainBlocklist,
	clock recipe.Clock,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:      jobs,
		recipes:   recipes,
		queue:     queue,
		blocklist: blocklist,
		clock:     clock,
		logger:    logger,
	}
}

// Submit validates and normalizes the URL, claims its job, and enqueues work
// when the claim started a fresh run. A previously succeeded URL returns the
// cached recipe without fetching; an in-flight job returns its handle.
func (s *Service) Submit(ctx context.Context, rawURL string) (Handle, error) {
	normalized, err := recipe.NormalizeURL(rawURL)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", recipe.ErrInvalidURL, err)
	}
	if host := recipe.Hostname(normalized); s.blocklist.Blocked(host) {
		s.logger.Info("rejecting blocked domain", zap.String("host", host))
		return Handle{}, fmt.Errorf("%w: %s", recipe.ErrBlockedDomain, host)
	}

	job, claimed, err := s.jobs.Claim(ctx, normalized)
	if err != nil {
		return Handle{}, fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		return s.handleFor(ctx, job), nil
	}

	s.logger.Info("job claimed",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.Int("retry_count", job.RetryCount),
	)
	return s.enqueue(ctx, job), nil
}

// SubmitBulk submits up to MaxBulkURLs URLs. Oversized batches are rejected
// outright; invalid and blocked entries are skipped silently.
func (s *Service) SubmitBulk(ctx context.Context, urls []string) ([]Handle, error) {
	if len(urls) > MaxBulkURLs {
		return nil, fmt.Errorf("%w: got %d, max %d", recipe.ErrTooManyURLs, len(urls), MaxBulkURLs)
	}
	handles := make([]Handle, 0, len(urls))
	for _, raw := range urls {
		h, err := s.Submit(ctx, raw)
		if err != nil {
			if errors.Is(err, recipe.ErrInvalidURL) || errors.Is(err, recipe.ErrBlockedDomain) {
				s.logger.Debug("skipping rejected bulk url", zap.String("url", raw), zap.Error(err))
				continue
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Status returns the job and, when it succeeded, its recipe.
func (s *Service) Status(ctx context.Context, jobID string) (Handle, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return Handle{}, fmt.Errorf("get job: %w", err)
	}
	return s.handleFor(ctx, job), nil
}

// Retry re-runs a terminal job. Returns recipe.ErrJobRunning while the job
// is still processing.
func (s *Service) Retry(ctx context.Context, jobID string) (recipe.ScrapeJob, error) {
	job, err := s.jobs.Reclaim(ctx, jobID)
	if err != nil {
		return recipe.ScrapeJob{}, fmt.Errorf("reclaim job: %w", err)
	}
	s.logger.Info("job retried",
		zap.String("job_id", job.ID),
		zap.String("url", job.URL),
		zap.Int("retry_count", job.RetryCount),
	)
	return s.enqueue(ctx, job).Job, nil
}

// handleFor attaches the cached recipe to succeeded jobs.
func (s *Service) handleFor(ctx context.Context, job recipe.ScrapeJob) Handle {
	h := Handle{Job: job}
	if job.Status != recipe.JobStatusSuccess || job.RecipeID == "" {
		return h
	}
	rec, err := s.recipes.Get(ctx, job.RecipeID)
	if err != nil {
		s.logger.Warn("cached recipe lookup failed",
			zap.String("job_id", job.ID),
			zap.String("recipe_id", job.RecipeID),
			zap.Error(err),
		)
		return h
	}
	h.Recipe = &rec
	return h
}

// enqueue hands a claimed job to the worker pool. A full queue fails the job
// immediately; the caller still gets the handle so clients see the outcome.
func (s *Service) enqueue(ctx context.Context, job recipe.ScrapeJob) Handle {
	item := recipe.QueueItem{
		JobID:     job.ID,
		URL:       job.URL,
		Attempt:   job.RetryCount,
		Submitted: s.now().Unix(),
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		message := "enqueue failed"
		if errors.Is(err, recipe.ErrQueueFull) {
			message = "queue full"
		}
		s.logger.Warn("enqueue failed",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL),
			zap.Error(err),
		)
		if failErr := s.jobs.Fail(ctx, job.ID, message); failErr != nil {
			s.logger.Error("fail job after enqueue error",
				zap.String("job_id", job.ID),
				zap.Error(failErr),
			)
		}
		job.Status = recipe.JobStatusFailed
		job.ErrorMessage = message
	}
	return Handle{Job: job}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
