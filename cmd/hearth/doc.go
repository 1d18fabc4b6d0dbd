// Package main hosts the Hearth recipe scraping service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, scrape submission, and job lookup endpoints. Submitted
//     URLs are normalized, persisted as jobs via the JobStore, and enqueued for the worker pool. A URL whose last
//     scrape already succeeded is answered from the recipe store without re-fetching.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized by scraper.queue_depth and are fanned out
//     to a fixed worker pool sized by scraper.concurrency. Context cancellation stops workers cleanly on shutdown.
//   - Fetch pipeline: workers perform a lightweight probe fetch via the Colly-based fetcher, then promote to a
//     headless Chromedp fetch when the heuristic detector sees a thin or script-walled page. Per-domain rate limiting
//     and exponential retry wrap both tiers.
//   - Extraction: an ordered strategy chain parses the fetched HTML. JSON-LD schema.org/Recipe is tried first,
//     microdata second, and site-specific DOM selectors last; the first strategy to yield a complete recipe wins.
//   - Persistence & fanout: parsed recipes land in the RecipeStore (memory or Postgres), raw HTML snapshots are
//     archived to the configured BlobStore (memory/local/GCS), and a compact Pub/Sub notification is published when a
//     topic is configured. Progress events are batched by the hub and delivered to Prometheus and log sinks.
//   - Configuration & plumbing: Viper populates config from files and HEARTH_* env vars; zap provides structured
//     logging; Prometheus metrics are exported via the metrics middleware and /metrics handler. The service is
//     stateless across requests, suitable for Cloud Run scale-out.
//
// Operational notes:
//   - Concurrency model: bounded queue + fixed worker pool; headless fetches have their own semaphore inside the
//     Chromedp fetcher. Shutdown is coordinated via context cancellation propagated from main through the dispatcher
//     to workers.
//   - Politeness: the token-bucket limiter enforces scraper.domain_qps per registered domain before every fetch, and
//     the retry policy backs off exponentially on 429/5xx and transport errors.
//   - Observability: zap logs carry job IDs and URLs at key transitions; Prometheus counters/histograms track API and
//     scrape activity; the progress hub batches scrape lifecycle events for downstream sinks.
//
// Quick checklist:
//   - Configure env vars: HEARTH_SERVER_PORT, HEARTH_SCRAPER_CONCURRENCY, HEARTH_HTTP_TIMEOUT_SECONDS,
//     HEARTH_HEADLESS_ENABLED, storage (HEARTH_STORAGE_*), HEARTH_PUBSUB_PROJECT_ID, and HEARTH_DATABASE_DSN when
//     persistence beyond memory is required.
//   - Run locally: go run ./cmd/hearth -config config.yaml (or rely solely on env overrides).
//   - Cloud Run: the container listens on the configured port, remains stateless across requests, and shuts down
//     cleanly on SIGTERM with in-flight work bounded by per-fetch timeouts.
package main
