// Package server builds the application object graph and runs it.
//
// Build wires configuration into concrete stores, fetchers, the worker
// pool, and the HTTP API. Components with external backends (Postgres,
// GCS, Pub/Sub, headless Chrome) degrade to in-memory or disabled
// variants when their configuration is absent, so a bare binary still
// serves scrapes end to end.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/api"
	"github.com/devilsangel360live/Hearth/internal/clock/system"
	"github.com/devilsangel360live/Hearth/internal/config"
	"github.com/devilsangel360live/Hearth/internal/dispatcher"
	"github.com/devilsangel360live/Hearth/internal/extract"
	"github.com/devilsangel360live/Hearth/internal/fetch"
	collyfetcher "github.com/devilsangel360live/Hearth/internal/fetch/colly"
	"github.com/devilsangel360live/Hearth/internal/fetch/detector"
	"github.com/devilsangel360live/Hearth/internal/fetch/headless"
	"github.com/devilsangel360live/Hearth/internal/fetch/ratelimit"
	"github.com/devilsangel360live/Hearth/internal/hash/sha256"
	"github.com/devilsangel360live/Hearth/internal/id/uuid"
	"github.com/devilsangel360live/Hearth/internal/logging"
	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/progress"
	progresssinks "github.com/devilsangel360live/Hearth/internal/progress/sinks"
	memorypublisher "github.com/devilsangel360live/Hearth/internal/publisher/memory"
	gcppublisher "github.com/devilsangel360live/Hearth/internal/publisher/pubsub"
	queueMemory "github.com/devilsangel360live/Hearth/internal/queue/memory"
	"github.com/devilsangel360live/Hearth/internal/recipe"
	"github.com/devilsangel360live/Hearth/internal/scrape"
	gcsstorage "github.com/devilsangel360live/Hearth/internal/storage/gcs"
	localstorage "github.com/devilsangel360live/Hearth/internal/storage/local"
	memoryStorage "github.com/devilsangel360live/Hearth/internal/storage/memory"
	pgstore "github.com/devilsangel360live/Hearth/internal/storage/postgres"
)

// App holds the wired application. Fields that own external resources
// are retained so Close can release them in dependency order.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	apiServer   *api.Server
	dispatch    *dispatcher.Dispatcher
	queue       *queueMemory.Queue
	progressHub *progress.Hub

	rendered     *headless.Fetcher
	publisher    *gcppublisher.Publisher
	pubsubClient *pubsub.Client
	gcsClient    *storage.Client
	pool         *pgxpool.Pool
}

// Build constructs the full application from configuration. The context
// bounds client dials during startup and becomes the base context for
// the progress hub.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application",
		zap.Int("server_port", cfg.Server.Port),
		zap.Int("concurrency", cfg.Scraper.Concurrency),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	ids := uuid.New()
	clk := system.New()

	jobs, recipes, err := setupStores(ctx, app, ids)
	if err != nil {
		return nil, err
	}
	blobs, err := setupBlobStorage(ctx, app)
	if err != nil {
		return nil, err
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, err
	}
	events := setupProgress(ctx, app)

	app.queue = queueMemory.NewQueue(cfg.Scraper.QueueDepth)
	app.dispatch = setupDispatcher(app, jobs, recipes, blobs, publisher, events, ids, clk)

	blocklist := recipe.NewDomainBlocklist(cfg.Scraper.BlockedDomains)
	if blocklist != nil {
		logger.Info("domain blocklist active", zap.Int("patterns", len(cfg.Scraper.BlockedDomains)))
	}
	svc := scrape.NewService(jobs, recipes, app.queue, blocklist, clk, logger.Named("service"))
	app.apiServer = api.NewServer(svc, *cfg, logger.Named("api"))

	return app, nil
}

// setupStores returns the job and recipe stores, backed by Postgres when
// a DSN is configured and process memory otherwise.
func setupStores(ctx context.Context, app *App, ids recipe.IDGenerator) (recipe.JobStore, recipe.RecipeStore, error) {
	if app.cfg.Database.DSN == "" {
		app.logger.Warn("no database DSN configured, using in-memory job and recipe stores")
		return memoryStorage.NewJobStore(ids), memoryStorage.NewRecipeStore(), nil
	}

	pool, err := pgstore.NewPool(ctx, pgstore.Config{
		DSN:             app.cfg.Database.DSN,
		MaxConns:        int32(app.cfg.Database.MaxConns),
		MinConns:        int32(app.cfg.Database.MinConns),
		MaxConnLifetime: time.Duration(app.cfg.Database.MaxConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool init failed: %w", err)
	}
	app.pool = pool

	jobs, err := pgstore.NewJobStore(pool, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("job store init failed: %w", err)
	}
	recipes, err := pgstore.NewRecipeStore(pool)
	if err != nil {
		return nil, nil, fmt.Errorf("recipe store init failed: %w", err)
	}
	app.logger.Info("postgres stores initialized", zap.Int("max_conns", app.cfg.Database.MaxConns))
	return jobs, recipes, nil
}

// setupBlobStorage returns the page archive for raw HTML snapshots.
func setupBlobStorage(ctx context.Context, app *App) (recipe.BlobStore, error) {
	switch app.cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.gcsClient = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: app.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		app.logger.Info("using GCS page archive", zap.String("bucket", app.cfg.Storage.Bucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		app.logger.Info("using local page archive", zap.String("base_dir", app.cfg.Storage.BaseDir))
		return blobs, nil
	default:
		app.logger.Info("using in-memory page archive")
		return memoryStorage.NewBlobStore(), nil
	}
}

// setupPublisher returns the completion-event publisher. Without a
// Pub/Sub project the in-memory recorder stands in so workers always
// have a publish target.
func setupPublisher(ctx context.Context, app *App) (recipe.Publisher, error) {
	if app.cfg.PubSub.ProjectID == "" || app.cfg.PubSub.TopicName == "" {
		app.logger.Warn("no Pub/Sub project configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}

	client, err := pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubClient = client

	pub, err := gcppublisher.New(client)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	app.publisher = pub
	app.logger.Info("pubsub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return pub, nil
}

// setupProgress builds the event hub and its sinks. Returns nil when
// progress tracking is disabled; pipeline and workers treat a nil
// emitter as "don't emit".
func setupProgress(ctx context.Context, app *App) progress.Emitter {
	if !app.cfg.Progress.Enabled {
		app.logger.Info("progress tracking disabled")
		return nil
	}

	var sinks []progress.Sink
	promSink, err := progresssinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		app.logger.Warn("prometheus progress sink init failed", zap.Error(err))
	} else {
		sinks = append(sinks, promSink)
	}
	if app.cfg.Progress.LogEvents {
		sinks = append(sinks, progresssinks.NewLogSink(app.logger.Named("progress_log")))
	}
	if len(sinks) == 0 {
		app.logger.Warn("progress tracking enabled but no sinks available")
		return nil
	}

	hubCfg := progress.Config{
		BufferSize:     app.cfg.Progress.BufferSize,
		MaxBatchEvents: app.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   time.Duration(app.cfg.Progress.MaxBatchWaitMs) * time.Millisecond,
		SinkTimeout:    time.Duration(app.cfg.Progress.SinkTimeoutMs) * time.Millisecond,
		BaseContext:    ctx,
		Logger:         app.logger.Named("progress_hub"),
	}
	app.progressHub = progress.NewHub(hubCfg, sinks...)
	app.logger.Info("progress hub initialized",
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return app.progressHub
}

// setupDispatcher assembles the fetch tiers, the scrape pipeline, and
// the worker pool behind the dispatcher.
func setupDispatcher(
	app *App,
	jobs recipe.JobStore,
	recipes recipe.RecipeStore,
	blobs recipe.BlobStore,
	publisher recipe.Publisher,
	events progress.Emitter,
	ids recipe.IDGenerator,
	clk recipe.Clock,
) *dispatcher.Dispatcher {
	cfg := app.cfg

	probe := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	})

	var rendered recipe.Fetcher
	if cfg.Headless.Enabled {
		hf, err := headless.NewChromedp(headless.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			app.logger.Warn("headless fetcher init failed, rendered tier disabled", zap.Error(err))
		} else {
			app.rendered = hf
			rendered = hf
			app.logger.Info("rendered tier enabled", zap.Int("max_parallel", cfg.Headless.MaxParallel))
		}
	}

	pipeline := scrape.NewPipeline(
		probe,
		rendered,
		detector.NewHeuristic(0),
		ratelimit.New(ratelimit.Config{QPS: cfg.Scraper.DomainQPS, Burst: cfg.Scraper.DomainBurst}),
		fetch.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax()),
		extract.DefaultChain(app.logger.Named("extract")),
		events,
		clk,
		app.logger.Named("pipeline"),
	)

	workerCfg := scrape.WorkerConfig{
		ContentType: cfg.Storage.ContentType,
		BlobPrefix:  cfg.Storage.Prefix,
		Topic:       cfg.PubSub.TopicName,
	}
	hasher := sha256.New()
	workers := make([]*scrape.Worker, 0, cfg.Scraper.Concurrency)
	for i := 0; i < cfg.Scraper.Concurrency; i++ {
		workers = append(workers, scrape.NewWorker(
			app.queue,
			jobs,
			recipes,
			blobs,
			publisher,
			hasher,
			ids,
			clk,
			pipeline,
			events,
			workerCfg,
			app.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return dispatcher.New(app.queue, workers)
}

// Run starts the dispatcher and HTTP server, then blocks until the
// context is canceled or a termination signal arrives. Shutdown drains
// the HTTP server and closes owned resources within a 10s budget.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Scraper.Concurrency))
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", zap.Error(err))
	}
	return a.Close(shutdownCtx)
}

// Close releases owned resources. The queue closes first so workers
// drain, then the progress hub flushes, then external clients go down.
func (a *App) Close(ctx context.Context) error {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure(ctx)

	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.rendered != nil {
		a.rendered.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
