// Package server builds the scraper application from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/api"
	"github.com/pankajkandpal99/web-scrapper/internal/clock/system"
	"github.com/pankajkandpal99/web-scrapper/internal/config"
	"github.com/pankajkandpal99/web-scrapper/internal/extract"
	"github.com/pankajkandpal99/web-scrapper/internal/fetcher"
	collyfetcher "github.com/pankajkandpal99/web-scrapper/internal/fetcher/colly"
	headlessfetcher "github.com/pankajkandpal99/web-scrapper/internal/fetcher/headless"
	"github.com/pankajkandpal99/web-scrapper/internal/hash/sha256"
	"github.com/pankajkandpal99/web-scrapper/internal/headless/detector"
	"github.com/pankajkandpal99/web-scrapper/internal/id/uuid"
	"github.com/pankajkandpal99/web-scrapper/internal/policy/ratelimit"
	"github.com/pankajkandpal99/web-scrapper/internal/policy/redisquota"
	kafkapublisher "github.com/pankajkandpal99/web-scrapper/internal/publisher/kafka"
	memorypublisher "github.com/pankajkandpal99/web-scrapper/internal/publisher/memory"
	gcppublisher "github.com/pankajkandpal99/web-scrapper/internal/publisher/pubsub"
	"github.com/pankajkandpal99/web-scrapper/internal/report"
	"github.com/pankajkandpal99/web-scrapper/internal/scraper"
	gcsstorage "github.com/pankajkandpal99/web-scrapper/internal/storage/gcs"
	localstorage "github.com/pankajkandpal99/web-scrapper/internal/storage/local"
	memorystorage "github.com/pankajkandpal99/web-scrapper/internal/storage/memory"
	pgstore "github.com/pankajkandpal99/web-scrapper/internal/storage/postgres"
	"github.com/pankajkandpal99/web-scrapper/internal/techdetect"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	service   *scraper.Service
	apiServer *api.Server
	reporter  *report.Reporter

	// closers run in reverse order on shutdown.
	closers []namedCloser
	checks  []api.Option
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// Build creates the application's dependencies from cfg.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("events_backend", cfg.Events.Backend),
		zap.Bool("headless", cfg.Headless.Enabled),
	)

	ok := false
	defer func() {
		if !ok {
			app.closeAll(context.Background())
		}
	}()

	reporter, err := report.New(report.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Debug:       cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}
	app.reporter = reporter
	app.addCloser("sentry", func(context.Context) error {
		reporter.Flush(2 * time.Second)
		return nil
	})

	chain, err := app.setupFetcher()
	if err != nil {
		return nil, err
	}
	records, err := app.setupRecordStore(ctx)
	if err != nil {
		return nil, err
	}
	blobs, err := app.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	quota, err := app.setupQuota(ctx)
	if err != nil {
		return nil, err
	}
	tech, err := app.setupTechDetector()
	if err != nil {
		return nil, err
	}

	deps := scraper.Dependencies{
		Fetcher:   chain,
		Extractor: extract.New(logger.Named("extract")),
		Records:   records,
		Blobs:     blobs,
		Publisher: publisher,
		Quota:     quota,
		Tech:      tech,
		Hasher:    sha256.New(),
		Clock:     system.New(),
		IDs:       uuid.New(),
		Logger:    logger.Named("scraper"),
	}
	eventTopic := ""
	if publisher != nil {
		eventTopic = cfg.Events.Topic
	}
	app.service, err = scraper.New(scraper.Config{
		MaxBulk:            cfg.Scraper.MaxBulk,
		HistoryLimit:       cfg.Scraper.HistoryLimit,
		ArchiveHTML:        cfg.Storage.ArchiveHTML,
		ArchivePrefix:      cfg.Storage.Prefix,
		DetectTechnologies: cfg.Scraper.DetectTechnologies,
		EventTopic:         eventTopic,
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("scraper service init failed: %w", err)
	}

	opts := append([]api.Option{api.WithReporter(reporter)}, app.checks...)
	app.apiServer = api.NewServer(app.service, cfg, logger, opts...)

	ok = true
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases every dependency Build opened.
func (a *App) Close(ctx context.Context) {
	a.closeAll(ctx)
	a.logger.Info("shutdown complete")
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) setupFetcher() (*fetcher.Chain, error) {
	cfg := a.cfg
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Fetch.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxBodySize: cfg.Fetch.MaxBodyBytes,
	})
	opts := []fetcher.Option{fetcher.WithLogger(a.logger.Named("fetcher"))}

	if cfg.Headless.Enabled {
		browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:    cfg.Headless.MaxParallel,
			UserAgent:      cfg.Fetch.UserAgent,
			Timeout:        cfg.FetchTimeout(),
			ExecPath:       cfg.Headless.ExecPath,
			NoSandbox:      cfg.Headless.NoSandbox,
			ViewportWidth:  int64(cfg.Headless.ViewportWidth),
			ViewportHeight: int64(cfg.Headless.ViewportHeight),
			IdleInflight:   cfg.Headless.IdleConnections,
			IdleQuiet:      cfg.IdleWindow(),
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		opts = append(opts, fetcher.WithBrowser(browser))
		a.logger.Info("browser fallback enabled", zap.Int("max_parallel", cfg.Headless.MaxParallel))

		if cfg.Headless.PromoteShells {
			opts = append(opts, fetcher.WithShellDetector(detector.NewHeuristic(cfg.Headless.PromotionThreshold)))
			a.logger.Info("shell promotion enabled", zap.Int("threshold", cfg.Headless.PromotionThreshold))
		}
	}

	chain, err := fetcher.NewChain(static, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch chain init failed: %w", err)
	}
	return chain, nil
}

func (a *App) setupRecordStore(ctx context.Context) (scraper.RecordStore, error) {
	if a.cfg.Storage.Backend != config.BackendPostgres {
		a.logger.Info("using in-memory record store")
		return memorystorage.NewRecordStore(), nil
	}
	store, err := pgstore.NewRecordStore(ctx, pgstore.RecordStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("record store init failed: %w", err)
	}
	a.addCloser("postgres", func(context.Context) error {
		store.Close()
		return nil
	})
	if a.cfg.DB.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("record store migrate failed: %w", err)
		}
	}
	a.checks = append(a.checks, api.WithReadinessCheck("postgres", store.Ping))
	a.logger.Info("postgres record store initialized", zap.String("table", a.cfg.DB.Table))
	return store, nil
}

func (a *App) setupBlobStore(ctx context.Context) (scraper.BlobStore, error) {
	if !a.cfg.Storage.ArchiveHTML {
		return nil, nil
	}
	switch a.cfg.Storage.BlobBackend {
	case config.BackendGCS:
		store, err := gcsstorage.Dial(ctx, gcsstorage.Config{
			Bucket:   a.cfg.Storage.GCSBucket,
			Endpoint: a.cfg.Storage.GCSEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.addCloser("gcs", func(context.Context) error { return store.Close() })
		a.logger.Info("archiving pages to GCS", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, nil
	case config.BackendLocal:
		store, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("archiving pages to local disk", zap.String("path", a.cfg.Storage.LocalDir))
		return store, nil
	default:
		a.logger.Info("archiving pages in memory")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (scraper.Publisher, error) {
	switch a.cfg.Events.Backend {
	case config.BackendPubSub:
		pub, err := gcppublisher.Dial(ctx, a.cfg.Events.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		a.addCloser("pubsub", func(context.Context) error { return pub.Close() })
		a.logger.Info("publishing events to Pub/Sub",
			zap.String("project", a.cfg.Events.ProjectID),
			zap.String("topic", a.cfg.Events.Topic),
		)
		return pub, nil
	case config.BackendKafka:
		pub, err := kafkapublisher.New(a.cfg.Events.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher init failed: %w", err)
		}
		a.addCloser("kafka", func(context.Context) error { return pub.Close() })
		a.logger.Info("publishing events to Kafka", zap.String("topic", a.cfg.Events.Topic))
		return pub, nil
	case config.BackendMemory:
		a.logger.Info("recording events in memory", zap.String("topic", a.cfg.Events.Topic))
		return memorypublisher.New(), nil
	default:
		a.logger.Info("event publishing disabled")
		return nil, nil
	}
}

func (a *App) setupQuota(ctx context.Context) (scraper.Quota, error) {
	if !a.cfg.Quota.Enabled {
		return nil, nil
	}
	if a.cfg.Quota.Backend == config.BackendRedis {
		quota, err := redisquota.New(ctx, redisquota.Config{
			Addr:   a.cfg.Quota.RedisAddr,
			Limit:  a.cfg.Quota.PerHour,
			Window: time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("redis quota init failed: %w", err)
		}
		a.addCloser("redis", func(context.Context) error { return quota.Close() })
		a.logger.Info("redis quota enabled", zap.Int("per_hour", a.cfg.Quota.PerHour))
		return quota, nil
	}
	a.logger.Info("in-process quota enabled",
		zap.Int("per_hour", a.cfg.Quota.PerHour),
		zap.Int("burst", a.cfg.Quota.Burst),
	)
	return ratelimit.New(ratelimit.Config{PerHour: a.cfg.Quota.PerHour, Burst: a.cfg.Quota.Burst}), nil
}

func (a *App) setupTechDetector() (scraper.TechDetector, error) {
	if !a.cfg.Scraper.DetectTechnologies {
		return nil, nil
	}
	d, err := techdetect.New(a.logger.Named("techdetect"))
	if err != nil {
		return nil, fmt.Errorf("tech detector init failed: %w", err)
	}
	return d, nil
}
