package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/config"
	iduuid "github.com/devilsangel360live/Hearth/internal/id/uuid"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	queuemem "github.com/devilsangel360live/Hearth/internal/queue/memory"
	"github.com/devilsangel360live/Hearth/internal/recipe"
	"github.com/devilsangel360live/Hearth/internal/scrape"
	storagemem "github.com/devilsangel360live/Hearth/internal/storage/memory"
)

func TestServer_SubmitScrape_Accepted(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://example.com/recipes/pho"}`))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "processing", jobField(t, body, "status"))
	require.NotContains(t, body, "cached")

	jobID, _ := jobField(t, body, "job_id").(string)
	_, err := uuid.Parse(jobID)
	require.NoError(t, err)

	item, err := h.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, jobID, item.JobID)
	require.Equal(t, "https://example.com/recipes/pho", item.URL)
}

func TestServer_SubmitScrape_InvalidJSON(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SubmitScrape_InvalidURL(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"not a url"}`))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid url")
}

func TestServer_SubmitScrape_BlockedDomain(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{
		Scraper: config.ScraperConfig{BlockedDomains: []string{"blocked.test"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://blocked.test/recipes/pho"}`))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "domain is blocked")
	require.Zero(t, h.queue.Len())
}

func TestServer_SubmitScrape_CachedRecipe(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	first := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://example.com/recipes/pho"}`))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, first)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := jobField(t, decodeBody(t, rec), "job_id").(string)

	// Finish the job the way a worker would.
	require.NoError(t, h.recipes.Save(context.Background(), recipe.Recipe{
		ID:        "rec-1",
		Title:     "Beef Pho",
		SourceURL: "https://example.com/recipes/pho",
	}))
	require.NoError(t, h.jobs.Complete(context.Background(), jobID, "rec-1"))

	second := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://example.com/recipes/pho"}`))
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, second)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["cached"])
	require.Equal(t, "success", jobField(t, body, "status"))
	recipeObj, ok := jobField(t, body, "recipe").(map[string]any)
	require.True(t, ok, "expected recipe in cached response")
	require.Equal(t, "Beef Pho", recipeObj["title"])
}

func TestServer_SubmitScrape_QueueFull(t *testing.T) {
	t.Parallel()
	metrics.Init()

	jobs := storagemem.NewJobStore(iduuid.New())
	q := queuemem.NewQueue(1)
	svc := scrape.NewService(jobs, storagemem.NewRecipeStore(), q, nil, nil, zap.NewNop())
	server := NewServer(svc, config.Config{}, zap.NewNop())

	submit := func(url string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
			bytes.NewBufferString(fmt.Sprintf(`{"url":%q}`, url)))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := submit("https://example.com/recipes/a")
	require.Equal(t, http.StatusAccepted, first.Code)

	second := submit("https://example.com/recipes/b")
	require.Equal(t, http.StatusAccepted, second.Code)
	body := decodeBody(t, second)
	require.Equal(t, "failed", jobField(t, body, "status"))
	require.Equal(t, "queue full", jobField(t, body, "error_message"))
}

func TestServer_SubmitScrapeBulk_SkipsInvalid(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	reqBody := `{"urls":["https://example.com/recipes/a","not a url","https://example.com/recipes/b"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape/bulk", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	jobList, ok := body["jobs"].([]any)
	require.True(t, ok, "response missing jobs list")
	require.Len(t, jobList, 2)
	require.Equal(t, 2, h.queue.Len())
}

func TestServer_SubmitScrapeBulk_OverLimit(t *testing.T) {
	t.Parallel()

	urls := make([]string, 0, scrape.MaxBulkURLs+1)
	for i := 0; i <= scrape.MaxBulkURLs; i++ {
		urls = append(urls, fmt.Sprintf("https://example.com/recipes/%d", i))
	}
	payload, err := json.Marshal(map[string][]string{"urls": urls})
	require.NoError(t, err)

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape/bulk", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "too many urls")
	require.Equal(t, 0, h.queue.Len())
}

func TestServer_SubmitScrapeBulk_MissingURLs(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape/bulk", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "urls required")
}

func TestServer_GetJob_ReturnsRecipe(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	submit := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://example.com/recipes/laksa"}`))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, submit)
	jobID, _ := jobField(t, decodeBody(t, rec), "job_id").(string)

	require.NoError(t, h.recipes.Save(context.Background(), recipe.Recipe{ID: "rec-9", Title: "Laksa"}))
	require.NoError(t, h.jobs.Complete(context.Background(), jobID, "rec-9"))

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+jobID, nil)
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "success", jobField(t, body, "status"))
	recipeObj, ok := jobField(t, body, "recipe").(map[string]any)
	require.True(t, ok, "expected recipe on succeeded job")
	require.Equal(t, "Laksa", recipeObj["title"])
}

func TestServer_GetJob_NotFound(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "job not found")
}

func TestServer_GetJob_InvalidID(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid job_id")
}

func TestServer_RetryJob(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	submit := httptest.NewRequest(http.MethodPost, "/v1/recipes/scrape",
		bytes.NewBufferString(`{"url":"https://example.com/recipes/dal"}`))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, submit)
	jobID, _ := jobField(t, decodeBody(t, rec), "job_id").(string)

	// Still processing: retry conflicts.
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/"+jobID+"/retry", nil)
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, h.jobs.Fail(context.Background(), jobID, "Could not extract recipe data"))

	req = httptest.NewRequest(http.MethodPost, "/v1/jobs/"+jobID+"/retry", nil)
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "processing", jobField(t, body, "status"))
	require.EqualValues(t, 1, jobField(t, body, "retry_count"))
}

func TestServer_RetryJob_NotFound(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/"+uuid.NewString()+"/retry", nil)
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}
	h := newServerHarness(cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz?api_key=secret", nil)
	rec = httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	h.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	h := newServerHarness(config.Config{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.server.Handler().ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rw.Hijack(); err == nil || err.Error() != "hijacker not supported" {
		t.Fatalf("expected unsupported hijacker error, got %v", err)
	}

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	if err != nil {
		t.Fatalf("expected successful hijack, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close hijacked conn: %v", err)
	}
	if err := h.CloseClient(); err != nil {
		t.Fatalf("close hijacked client: %v", err)
	}
	if buf == nil {
		t.Fatal("expected buf to be non-nil")
	}
}

// --- helpers/fakes ---

type serverHarness struct {
	server  *Server
	jobs    *storagemem.JobStore
	recipes *storagemem.RecipeStore
	queue   *queuemem.Queue
}

func newServerHarness(cfg config.Config) *serverHarness {
	metrics.Init()
	jobs := storagemem.NewJobStore(iduuid.New())
	recipes := storagemem.NewRecipeStore()
	queue := queuemem.NewQueue(10)
	blocklist := recipe.NewDomainBlocklist(cfg.Scraper.BlockedDomains)
	svc := scrape.NewService(jobs, recipes, queue, blocklist, nil, zap.NewNop())
	return &serverHarness{
		server:  NewServer(svc, cfg, zap.NewNop()),
		jobs:    jobs,
		recipes: recipes,
		queue:   queue,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func jobField(t *testing.T, body map[string]any, field string) any {
	t.Helper()
	job, ok := body["job"].(map[string]any)
	require.True(t, ok, "response missing job object")
	return job[field]
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			return fmt.Errorf("close hijacker client: %w", err)
		}
	}
	return nil
}
