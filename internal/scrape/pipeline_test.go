package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/extract"
	"github.com/devilsangel360live/Hearth/internal/fetch"
	"github.com/devilsangel360live/Hearth/internal/fetch/detector"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/progress"
	"github.com/devilsangel360live/Hearth/internal/recipe"
)

const testPageURL = "https://example.com/recipes/tomato-soup"

const recipePage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":"Velvet Tomato Soup","recipeIngredient":["2 cups chopped tomatoes","1 cup double cream"],"recipeInstructions":[{"@type":"HowToStep","text":"Roast the tomatoes until soft."},{"@type":"HowToStep","text":"Add the cream and simmer gently."}]}
</script>
</head><body><main><p>Dinner tonight.</p></main></body></html>`

// Same recipe plus a framework marker that trips the render detector.
const hybridRecipePage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Recipe","name":"Velvet Tomato Soup","recipeIngredient":["2 cups chopped tomatoes","1 cup double cream"],"recipeInstructions":[{"@type":"HowToStep","text":"Roast the tomatoes until soft."},{"@type":"HowToStep","text":"Add the cream and simmer gently."}]}
</script>
</head><body><div data-reactroot><main><p>Dinner tonight.</p></main></div></body></html>`

const appShellPage = `<!DOCTYPE html>
<html><head><script src="/static/app.js"></script></head>
<body><div id="root"></div></body></html>`

const interstitialPage = `<!DOCTYPE html>
<html><body><h1>Access denied</h1><p>Please complete the captcha to continue.</p></body></html>`

type fakeFetcher struct {
	mu   sync.Mutex
	n    int
	fn   func(call int, req recipe.FetchRequest) (recipe.FetchResponse, error)
	seen []recipe.FetchRequest
}

func (f *fakeFetcher) Fetch(_ context.Context, req recipe.FetchRequest) (recipe.FetchResponse, error) {
	f.mu.Lock()
	f.n++
	call := f.n
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	return f.fn(call, req)
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func serveHTML(body string, rendered bool) func(int, recipe.FetchRequest) (recipe.FetchResponse, error) {
	return func(_ int, req recipe.FetchRequest) (recipe.FetchResponse, error) {
		return recipe.FetchResponse{
			URL:        req.URL,
			StatusCode: 200,
			Body:       []byte(body),
			Duration:   25 * time.Millisecond,
			Rendered:   rendered,
		}, nil
	}
}

func serveError(err error) func(int, recipe.FetchRequest) (recipe.FetchResponse, error) {
	return func(int, recipe.FetchRequest) (recipe.FetchResponse, error) {
		return recipe.FetchResponse{}, err
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Stage
	}
	return out
}

func newTestPipeline(probe, rendered recipe.Fetcher, events progress.Emitter) *Pipeline {
	metrics.Init()
	return NewPipeline(
		probe,
		rendered,
		detector.NewHeuristic(0),
		nil,
		fetch.NewExponentialRetryPolicy(2, time.Millisecond, 2*time.Millisecond),
		extract.DefaultChain(zap.NewNop()),
		events,
		fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		zap.NewNop(),
	)
}

// TestPipelineExtractsFromProbeTier verifies the cheap tier satisfies a
// structured-data page without touching the browser.
func TestPipelineExtractsFromProbeTier(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveHTML(recipePage, false)}
	rendered := &fakeFetcher{fn: serveError(errors.New("should not be called"))}
	p := newTestPipeline(probe, rendered, nil)

	res, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.NoError(t, err)
	require.Equal(t, "structured_data", res.Strategy)
	require.Equal(t, "Velvet Tomato Soup", res.Candidate.Title)
	require.Len(t, res.Candidate.Ingredients, 2)
	require.False(t, res.Response.Rendered)
	require.Equal(t, 1, probe.calls())
	require.Equal(t, 0, rendered.calls())
}

// TestPipelinePromotesAppShell verifies an empty framework shell goes
// straight to the rendered tier.
func TestPipelinePromotesAppShell(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveHTML(appShellPage, false)}
	rendered := &fakeFetcher{fn: serveHTML(recipePage, true)}
	p := newTestPipeline(probe, rendered, nil)

	res, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.NoError(t, err)
	require.Equal(t, "structured_data", res.Strategy)
	require.True(t, res.Response.Rendered)
	require.Equal(t, 1, probe.calls())
	require.Equal(t, 1, rendered.calls())
}

// TestPipelineFallsBackToProbeBody verifies a rendered-tier failure falls
// back to extracting from the probe body when the chain never ran on it.
func TestPipelineFallsBackToProbeBody(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveHTML(hybridRecipePage, false)}
	rendered := &fakeFetcher{fn: serveError(&recipe.FetchError{URL: testPageURL, StatusCode: 502, Reason: "browser unavailable"})}
	p := newTestPipeline(probe, rendered, nil)

	res, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.NoError(t, err)
	require.Equal(t, "structured_data", res.Strategy)
	require.False(t, res.Response.Rendered)
	require.Equal(t, 1, rendered.calls())
}

// TestPipelineRejectsInterstitial verifies a 200 bot wall fails as a fetch
// error instead of reaching the strategy chain.
func TestPipelineRejectsInterstitial(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveHTML(interstitialPage, false)}
	rendered := &fakeFetcher{fn: serveError(errors.New("should not be called"))}
	p := newTestPipeline(probe, rendered, nil)

	_, err := p.Execute(context.Background(), "job-1", testPageURL)
	var fe *recipe.FetchError
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe.Reason, "interstitial")
	require.Equal(t, 0, rendered.calls())
}

// TestPipelineDoesNotRetryHTTPStatus verifies a definitive status answer is
// returned after a single attempt.
func TestPipelineDoesNotRetryHTTPStatus(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveError(&recipe.FetchError{URL: testPageURL, StatusCode: 404, Reason: "not found"})}
	p := newTestPipeline(probe, nil, nil)

	_, err := p.Execute(context.Background(), "job-1", testPageURL)
	var fe *recipe.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 404, fe.StatusCode)
	require.Equal(t, 1, probe.calls())
}

// TestPipelineRetriesTransientFailures verifies the retry policy reruns
// transport failures until a fetch lands.
func TestPipelineRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: func(call int, req recipe.FetchRequest) (recipe.FetchResponse, error) {
		if call <= 2 {
			return recipe.FetchResponse{}, errors.New("connection reset")
		}
		return serveHTML(recipePage, false)(call, req)
	}}
	p := newTestPipeline(probe, nil, nil)

	res, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.NoError(t, err)
	require.Equal(t, "Velvet Tomato Soup", res.Candidate.Title)
	require.Equal(t, 3, probe.calls())
}

// TestPipelineNoRecipeFound verifies an ordinary content page exhausts the
// chain and reports recipe.ErrNoRecipe.
func TestPipelineNoRecipeFound(t *testing.T) {
	t.Parallel()

	probe := &fakeFetcher{fn: serveHTML(`<html><body><p>Welcome to our site.</p></body></html>`, false)}
	p := newTestPipeline(probe, nil, nil)

	_, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.ErrorIs(t, err, recipe.ErrNoRecipe)
}

// TestPipelineEmitsProgressStages verifies the fetch and extract milestones
// reach the emitter in order.
func TestPipelineEmitsProgressStages(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	probe := &fakeFetcher{fn: serveHTML(recipePage, false)}
	p := newTestPipeline(probe, nil, emitter)

	_, err := p.Execute(context.Background(), "job-1", testPageURL)
	require.NoError(t, err)
	require.Equal(t, []progress.Stage{
		progress.StageFetchStart,
		progress.StageFetchDone,
		progress.StageExtractDone,
	}, emitter.stages())

	done := emitter.events[1]
	require.Equal(t, "example.com", done.Site)
	require.Equal(t, progress.Status2xx, done.StatusClass)
	require.Greater(t, done.Bytes, int64(0))
}
