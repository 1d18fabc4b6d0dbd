// Package api hosts the HTTP server, middleware, and REST handlers for
// client access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/recipes/scrape and /scrape/bulk for submission.
//   - GET /v1/jobs/{job_id} and POST /v1/jobs/{job_id}/retry for polling
//     and re-running jobs.
package api
