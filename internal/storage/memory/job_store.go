// Package memory provides in-memory store implementations for development
// and tests. They honor the same claim and retry semantics as the postgres
// stores.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// JobStore keeps scrape jobs keyed by id with a unique url index. Claim is
// atomic under the store lock, so two concurrent submissions of one url
// produce a single processing job.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]recipe.ScrapeJob
	idByURL map[string]string
	ids     recipe.IDGenerator
}

// NewJobStore constructs a JobStore minting ids from the given generator.
func NewJobStore(ids recipe.IDGenerator) *JobStore {
	return &JobStore{
		jobs:    make(map[string]recipe.ScrapeJob),
		idByURL: make(map[string]string),
		ids:     ids,
	}
}

// Claim creates a processing job for url, or takes over a finished one.
// The boolean reports whether the caller now owns a fresh extraction run:
// false means an existing job (processing or success) should be returned
// to the client as-is.
func (s *JobStore) Claim(_ context.Context, url string) (recipe.ScrapeJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.idByURL[url]; ok {
		job := s.jobs[id]
		switch job.Status {
		case recipe.JobStatusProcessing, recipe.JobStatusSuccess:
			return job, false, nil
		default:
			job.Status = recipe.JobStatusProcessing
			job.RetryCount++
			job.ErrorMessage = ""
			job.UpdatedAt = now
			s.jobs[id] = job
			return job, true, nil
		}
	}

	id, err := s.ids.NewID()
	if err != nil {
		return recipe.ScrapeJob{}, false, fmt.Errorf("new job id: %w", err)
	}
	job := recipe.ScrapeJob{
		ID:        id,
		URL:       url,
		Status:    recipe.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	s.idByURL[url] = id
	return job, true, nil
}

// Reclaim restarts a terminal job by id for an explicit retry. Processing
// jobs are never restarted.
func (s *JobStore) Reclaim(_ context.Context, id string) (recipe.ScrapeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return recipe.ScrapeJob{}, recipe.ErrJobNotFound
	}
	if job.Status == recipe.JobStatusProcessing {
		return recipe.ScrapeJob{}, recipe.ErrJobRunning
	}
	job.Status = recipe.JobStatusProcessing
	job.RetryCount++
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, nil
}

// Complete marks a job successful and records the stored recipe id.
func (s *JobStore) Complete(_ context.Context, id, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return recipe.ErrJobNotFound
	}
	job.Status = recipe.JobStatusSuccess
	job.RecipeID = recipeID
	job.ErrorMessage = ""
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

// Fail marks a job failed with the user-facing message.
func (s *JobStore) Fail(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return recipe.ErrJobNotFound
	}
	job.Status = recipe.JobStatusFailed
	job.ErrorMessage = message
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

// Get fetches a job by id.
func (s *JobStore) Get(_ context.Context, id string) (recipe.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return recipe.ScrapeJob{}, recipe.ErrJobNotFound
	}
	return job, nil
}

// GetByURL fetches a job by its url key.
func (s *JobStore) GetByURL(_ context.Context, url string) (recipe.ScrapeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.idByURL[url]
	if !ok {
		return recipe.ScrapeJob{}, recipe.ErrJobNotFound
	}
	return s.jobs[id], nil
}
