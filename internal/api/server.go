package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/config"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/recipe"
	"github.com/devilsangel360live/Hearth/internal/scrape"
)

// Server wires HTTP handlers to the scrape service.
type Server struct {
	router  chi.Router
	service *scrape.Service
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service *scrape.Service, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/recipes", func(r chi.Router) {
			r.Post("/scrape", s.submitScrape)
			r.Post("/scrape/bulk", s.submitScrapeBulk)
		})
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{job_id}", s.getJob)
			r.Post("/{job_id}/retry", s.retryJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// In-memory dependencies are always ready; in future check downstreams.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// submitScrape handles POST /v1/recipes/scrape. A URL whose job already
// succeeded returns 200 with the cached recipe; anything else returns 202
// with the job to poll.
func (s *Server) submitScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	handle, err := s.service.Submit(r.Context(), req.URL)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	status := http.StatusAccepted
	payload := map[string]any{"job": toJobDTO(handle)}
	if handle.Recipe != nil {
		status = http.StatusOK
		payload["cached"] = true
	}
	writeJSON(w, status, payload)
}

// submitScrapeBulk handles POST /v1/recipes/scrape/bulk. Batches over the
// cap are rejected with 400; invalid entries inside an accepted batch are
// skipped, so the response may carry fewer jobs than the request had URLs.
func (s *Server) submitScrapeBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	handles, err := s.service.SubmitBulk(r.Context(), req.URLs)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": toJobDTOs(handles)})
}

// getJob handles GET /v1/jobs/{job_id}. Succeeded jobs carry their recipe.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	handle, err := s.service.Status(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": toJobDTO(handle)})
}

// retryJob handles POST /v1/jobs/{job_id}/retry. Returns 202 once the job is
// back in processing, 409 while a run is still in flight.
func (s *Server) retryJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.service.Retry(r.Context(), jobID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job": toJobDTO(scrape.Handle{Job: job})})
}

// serviceError maps domain sentinels onto HTTP statuses. Anything unmapped
// is a 500 with the detail kept out of the response.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recipe.ErrInvalidURL),
		errors.Is(err, recipe.ErrBlockedDomain),
		errors.Is(err, recipe.ErrTooManyURLs):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recipe.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, recipe.ErrJobRunning):
		writeError(w, http.StatusConflict, "job is still processing")
	default:
		s.logger.Error("service call failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type bulkScrapeRequest struct {
	URLs []string `json:"urls"`
}

// parseJobID validates the path parameter before any store lookup.
func parseJobID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "job_id")
	if raw == "" {
		return "", errors.New("job_id is required")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", errors.New("invalid job_id")
	}
	return raw, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", requestIDFrom(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
