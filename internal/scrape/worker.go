package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/extract"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/progress"
	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// WorkerConfig controls worker behavior.
type WorkerConfig struct {
	ContentType string
	BlobPrefix  string
	Topic       string
}

// Worker consumes queue items and applies the job lifecycle around the
// pipeline: claim is already done by the service, so the worker fetches,
// extracts, persists, and settles the job as success or failed.
type Worker struct {
	queue     recipe.Queue
	jobs      recipe.JobStore
	recipes   recipe.RecipeStore
	blobs     recipe.BlobStore
	publisher recipe.Publisher
	hasher    recipe.Hasher
	ids       recipe.IDGenerator
	clock     recipe.Clock
	pipeline  *Pipeline
	events    progress.Emitter
	cfg       WorkerConfig
	logger    *zap.Logger
}

// NewWorker constructs a Worker.
func NewWorker(
	queue recipe.Queue,
	jobs recipe.JobStore,
	recipes recipe.RecipeStore,
	blobs recipe.BlobStore,
	publisher recipe.Publisher,
	hasher recipe.Hasher,
	ids recipe.IDGenerator,
	clock recipe.Clock,
	pipeline *Pipeline,
	events progress.Emitter,
	cfg WorkerConfig,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		jobs:      jobs,
		recipes:   recipes,
		blobs:     blobs,
		publisher: publisher,
		hasher:    hasher,
		ids:       ids,
		clock:     clock,
		pipeline:  pipeline,
		events:    events,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item recipe.QueueItem) {
	start := w.now()
	site := recipe.Domain(item.URL)
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	// Extraction runs arbitrary selector logic over arbitrary HTML; a bug
	// there must settle the job, not take the worker down.
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic while processing job",
				zap.String("job_id", item.JobID),
				zap.String("url", item.URL),
				zap.Any("panic", r),
			)
			w.finishFailed(ctx, item, site, start, fmt.Sprintf("internal error: %v", r))
		}
	}()

	w.emit(progress.Event{
		JobID: item.JobID,
		TS:    start,
		Stage: progress.StageJobStart,
		Site:  site,
		URL:   item.URL,
	})
	w.logger.Info("processing job",
		zap.String("job_id", item.JobID),
		zap.String("url", item.URL),
		zap.Int("attempt", item.Attempt),
	)

	if w.pipeline == nil {
		w.logger.Error("no pipeline configured", zap.String("job_id", item.JobID))
		w.finishFailed(ctx, item, site, start, "no pipeline configured")
		return
	}

	res, err := w.pipeline.Execute(ctx, item.JobID, item.URL)
	if err != nil {
		w.logger.Warn("job failed",
			zap.String("job_id", item.JobID),
			zap.String("url", item.URL),
			zap.Error(err),
		)
		w.finishFailed(ctx, item, site, start, recipe.UserMessage(err))
		return
	}

	blobURI := w.archive(ctx, item.JobID, res.Response)

	rec, err := w.buildRecipe(res, item.URL)
	if err != nil {
		w.logger.Error("build recipe failed", zap.String("job_id", item.JobID), zap.Error(err))
		w.finishFailed(ctx, item, site, start, "failed to save recipe")
		return
	}
	if err := w.recipes.Save(ctx, rec); err != nil {
		w.logger.Error("save recipe failed",
			zap.String("job_id", item.JobID),
			zap.String("recipe_id", rec.ID),
			zap.Error(err),
		)
		w.finishFailed(ctx, item, site, start, "failed to save recipe")
		return
	}
	if err := w.jobs.Complete(ctx, item.JobID, rec.ID); err != nil {
		w.logger.Error("complete job failed",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
		return
	}

	metrics.ObserveJob(string(recipe.JobStatusSuccess))
	w.publish(ctx, item, string(recipe.JobStatusSuccess), rec.ID, blobURI)
	duration := w.now().Sub(start)
	w.emit(progress.Event{
		JobID:    item.JobID,
		TS:       w.now(),
		Stage:    progress.StageJobDone,
		Site:     site,
		URL:      item.URL,
		Strategy: res.Strategy,
		Dur:      duration,
	})
	w.logger.Info("job completed",
		zap.String("job_id", item.JobID),
		zap.String("url", item.URL),
		zap.String("strategy", res.Strategy),
		zap.String("recipe_id", rec.ID),
		zap.Duration("duration", duration),
	)
}

func (w *Worker) buildRecipe(res *Result, url string) (recipe.Recipe, error) {
	id, err := w.ids.NewID()
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("mint recipe id: %w", err)
	}
	return extract.BuildRecipe(res.Candidate, url, id, w.now()), nil
}

// finishFailed settles the job as failed and reports the outcome.
func (w *Worker) finishFailed(ctx context.Context, item recipe.QueueItem, site string, start time.Time, message string) {
	if err := w.jobs.Fail(ctx, item.JobID, message); err != nil {
		w.logger.Error("fail job status update",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
	}
	metrics.ObserveJob(string(recipe.JobStatusFailed))
	w.publish(ctx, item, string(recipe.JobStatusFailed), "", "")
	w.emit(progress.Event{
		JobID: item.JobID,
		TS:    w.now(),
		Stage: progress.StageJobError,
		Site:  site,
		URL:   item.URL,
		Dur:   w.now().Sub(start),
		Note:  message,
	})
}

// archive stores the page body best-effort and returns its URI, or "" when
// archiving is unavailable or failed. Failures never affect the job outcome.
func (w *Worker) archive(ctx context.Context, jobID string, resp recipe.FetchResponse) string {
	if w.blobs == nil || w.hasher == nil || len(resp.Body) == 0 {
		return ""
	}
	hash, err := w.hasher.Hash(resp.Body)
	if err != nil {
		w.logger.Warn("hash page body", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	uri, err := w.blobs.PutObject(ctx, w.blobPath(jobID, hash), w.cfg.ContentType, resp.Body)
	if err != nil {
		w.logger.Warn("archive page body", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	w.logger.Debug("page archived",
		zap.String("job_id", jobID),
		zap.String("blob_uri", uri),
	)
	return uri
}

func (w *Worker) blobPath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, jobID, hash)
}

// publish sends the completion event best-effort.
func (w *Worker) publish(ctx context.Context, item recipe.QueueItem, status, recipeID, blobURI string) {
	if w.publisher == nil || w.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"job_id":    item.JobID,
		"url":       item.URL,
		"status":    status,
		"timestamp": w.now().Format(time.RFC3339),
	}
	if recipeID != "" {
		payload["recipe_id"] = recipeID
	}
	if blobURI != "" {
		payload["blob_uri"] = blobURI
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, payload); err != nil {
		w.logger.Warn("publish completion event",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
	}
}

func (w *Worker) emit(evt progress.Event) {
	if w.events != nil {
		w.events.Emit(evt)
	}
}

func (w *Worker) now() time.Time {
	if w.clock != nil {
		return w.clock.Now()
	}
	return time.Now().UTC()
}
