package scrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/extract"
	"github.com/devilsangel360live/Hearth/internal/fetch"
	"github.com/devilsangel360live/Hearth/internal/fetch/detector"
	"github.com/devilsangel360live/Hearth/internal/fetch/ratelimit"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/progress"
	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Fetch tier labels used in metrics and log fields.
const (
	tierProbe    = "probe"
	tierRendered = "rendered"
)

// Result is a successful pipeline run: the accepted candidate, the strategy
// that produced it, and the response whose body it was extracted from.
type Result struct {
	Candidate *recipe.Candidate
	Strategy  string
	Response  recipe.FetchResponse
}

// Pipeline executes the fetch and extraction stages for a single URL. The
// probe tier runs first; the rendered tier is consulted when the probe body
// looks like an application shell or yields no recipe.
type Pipeline struct {
	probe    recipe.Fetcher
	rendered recipe.Fetcher
	detect   *detector.Heuristic
	limiter  *ratelimit.Limiter
	retry    *fetch.ExponentialRetryPolicy
	chain    *extract.Chain
	events   progress.Emitter
	clock    recipe.Clock
	logger   *zap.Logger
}

// NewPipeline wires the pipeline stages. rendered, limiter, and events may
// be nil; the matching stage is skipped.
func NewPipeline(
	probe recipe.Fetcher,
	rendered recipe.Fetcher,
	detect *detector.Heuristic,
	limiter *ratelimit.Limiter,
	retry *fetch.ExponentialRetryPolicy,
	chain *extract.Chain,
	events progress.Emitter,
	clock recipe.Clock,
	logger *zap.Logger,
) *Pipeline {
	if detect == nil {
		detect = detector.NewHeuristic(0)
	}
	if retry == nil {
		retry = fetch.NewExponentialRetryPolicy(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		probe:    probe,
		rendered: rendered,
		detect:   detect,
		limiter:  limiter,
		retry:    retry,
		chain:    chain,
		events:   events,
		clock:    clock,
		logger:   logger,
	}
}

// Execute fetches the URL and runs the strategy chain, promoting to the
// rendered tier when needed. Fetch failures come back as *recipe.FetchError;
// an exhausted chain comes back as recipe.ErrNoRecipe.
func (p *Pipeline) Execute(ctx context.Context, jobID, url string) (*Result, error) {
	resp, err := p.fetchTier(ctx, jobID, url, p.probe, tierProbe)
	if err != nil {
		return nil, err
	}
	if detector.Interstitial(resp.Body) {
		return nil, &recipe.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Reason:     "interstitial page served instead of content",
		}
	}

	needsRender := p.detect.NeedsRender(resp)
	if !needsRender {
		if res, err := p.extractFrom(jobID, url, resp); err == nil {
			return res, nil
		}
	}

	// Rendered tier: the probe body looked like an app shell, or the chain
	// found nothing in it. Failures here fall back rather than aborting.
	if p.rendered == nil {
		if needsRender {
			if res, err := p.extractFrom(jobID, url, resp); err == nil {
				return res, nil
			}
		}
		return nil, recipe.ErrNoRecipe
	}

	renderedResp, err := p.fetchTier(ctx, jobID, url, p.rendered, tierRendered)
	if err != nil {
		p.logger.Debug("rendered fetch failed",
			zap.String("job_id", jobID),
			zap.String("url", url),
			zap.Error(err),
		)
		if needsRender {
			if res, exErr := p.extractFrom(jobID, url, resp); exErr == nil {
				return res, nil
			}
		}
		return nil, recipe.ErrNoRecipe
	}

	if res, err := p.extractFrom(jobID, url, renderedResp); err == nil {
		return res, nil
	}
	return nil, recipe.ErrNoRecipe
}

// fetchTier runs one fetcher with rate limiting and the retry policy.
func (p *Pipeline) fetchTier(
	ctx context.Context,
	jobID, url string,
	fetcher recipe.Fetcher,
	tier string,
) (recipe.FetchResponse, error) {
	if fetcher == nil {
		return recipe.FetchResponse{}, &recipe.FetchError{URL: url, Reason: tier + " fetcher not configured"}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, url); err != nil {
			return recipe.FetchResponse{}, fmt.Errorf("%s tier: %w", tier, err)
		}
	}

	site := recipe.Domain(url)
	p.emit(progress.Event{
		JobID: jobID,
		TS:    p.now(),
		Stage: progress.StageFetchStart,
		Site:  site,
		URL:   url,
	})

	resp, err := p.fetchWithRetry(ctx, jobID, url, fetcher, tier)
	if err != nil {
		return recipe.FetchResponse{}, err
	}

	metrics.ObserveFetch(tier, site, resp.StatusCode, len(resp.Body), resp.Duration)
	p.emit(progress.Event{
		JobID:       jobID,
		TS:          p.now(),
		Stage:       progress.StageFetchDone,
		Site:        site,
		URL:         url,
		Bytes:       int64(len(resp.Body)),
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Dur:         resp.Duration,
	})
	return resp, nil
}

func (p *Pipeline) fetchWithRetry(
	ctx context.Context,
	jobID, url string,
	fetcher recipe.Fetcher,
	tier string,
) (recipe.FetchResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := fetcher.Fetch(ctx, recipe.FetchRequest{JobID: jobID, URL: url})
		if err == nil {
			return resp, nil
		}
		if !p.retry.ShouldRetry(err, attempt) {
			return recipe.FetchResponse{}, err
		}
		backoff := p.retry.Backoff(attempt)
		p.logger.Debug("retrying fetch",
			zap.String("job_id", jobID),
			zap.String("url", url),
			zap.String("tier", tier),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return recipe.FetchResponse{}, fmt.Errorf("fetch retry wait: %w", ctx.Err())
		}
	}
}

// extractFrom parses the body and runs the strategy chain over it.
func (p *Pipeline) extractFrom(jobID, url string, resp recipe.FetchResponse) (*Result, error) {
	page, err := extract.NewPage(url, resp.Body, resp.Rendered)
	if err != nil {
		p.logger.Debug("page parse failed",
			zap.String("job_id", jobID),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, recipe.ErrNoRecipe
	}
	cand, strategy, err := p.chain.Run(page)
	if err != nil {
		return nil, err
	}
	p.emit(progress.Event{
		JobID:    jobID,
		TS:       p.now(),
		Stage:    progress.StageExtractDone,
		Site:     page.Domain,
		URL:      url,
		Strategy: strategy,
	})
	return &Result{Candidate: cand, Strategy: strategy, Response: resp}, nil
}

func (p *Pipeline) emit(evt progress.Event) {
	if p.events != nil {
		p.events.Emit(evt)
	}
}

func (p *Pipeline) now() time.Time {
	if p.clock != nil {
		return p.clock.Now()
	}
	return time.Now().UTC()
}
