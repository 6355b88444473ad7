package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zeebo/errs"
	"golang.org/x/sync/errgroup"

	"RingsideSync/internal/classifier"
	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/infrastructure/cache"
	"RingsideSync/internal/infrastructure/connectivity"
	"RingsideSync/internal/infrastructure/feedback"
	"RingsideSync/internal/infrastructure/fetcher"
	"RingsideSync/internal/infrastructure/httpapi"
	"RingsideSync/internal/infrastructure/parser"
	infrascheduler "RingsideSync/internal/infrastructure/scheduler"
	"RingsideSync/internal/infrastructure/storage"
	"RingsideSync/internal/infrastructure/telegram"
	"RingsideSync/internal/logging"
	"RingsideSync/internal/ports"
	"RingsideSync/internal/quality"
	"RingsideSync/internal/registry"
	"RingsideSync/internal/usecase"
)

const stopTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	sources      *registry.SourceRegistry
	view         *usecase.View
	pipeline     *usecase.Pipeline
	orchestrator *usecase.Orchestrator
	monitor      *quality.Monitor
	scheduler    *usecase.Scheduler
	api          *httpapi.Server
	watcher      *connectivity.Watcher

	cache   ports.CacheStore
	archive *storage.ArchiveRepository
}

// New validates cfg and builds every component; Close releases the stores it opened.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sources, err := registry.New(cfg.DomainSources())
	if err != nil {
		return nil, fmt.Errorf("source catalog: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, sources: sources}

	a.cache, err = openCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	var archive ports.ArticleArchive
	if cfg.Archive.DSN != "" {
		a.archive, err = storage.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			return nil, errs.Combine(fmt.Errorf("open archive: %w", err), a.cache.Close())
		}
		archive = a.archive
	}

	maxAges := make(map[domain.SyncDomain]time.Duration, len(domain.AllDomains))
	policies := make(map[domain.SyncDomain]usecase.DomainPolicy, len(domain.AllDomains))
	timings := make(map[domain.SyncDomain]usecase.DomainTiming, len(domain.AllDomains))
	for _, d := range domain.AllDomains {
		dc := cfg.Domains.For(d)
		maxAges[d] = dc.MaxAge
		policies[d] = usecase.DomainPolicy{MaxAge: dc.MaxAge, MinSuccessfulSources: dc.MinSuccessfulSources}
		timings[d] = usecase.DomainTiming{Interval: dc.Interval, RequireElapsedSinceSuccess: dc.RequireElapsedSinceSuccess}
	}

	a.view = usecase.NewView(maxAges, nil)

	var feed ports.ReliabilityFeed
	if cfg.Quality.FeedbackURL != "" {
		feed = feedback.NewClient(cfg.Quality.FeedbackURL, cfg.Quality.FeedbackAPIKey)
	}
	a.monitor = quality.NewMonitor(quality.MonitorDeps{
		Config:      cfg.Quality,
		Reliability: sources.Reliability(),
		View:        a.view,
		Cache:       a.cache,
		Feed:        feed,
		Logger:      baseLogger.With("component", "quality"),
	})

	fetch := fetcher.NewHTTPFetcher(nil, fetcher.Options{
		Timeout:      cfg.Fetch.Timeout,
		Retries:      cfg.Fetch.Retries,
		RetryDelay:   cfg.Fetch.RetryDelay,
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, a.monitor, baseLogger.With("component", "fetcher"))

	collector := parser.NewFeedSource(sources, fetch, parser.NewFeedParser(nil), cfg.Fetch.MaxConcurrent,
		baseLogger.With("component", "source"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Collector:  collector,
		Classifier: classifier.New(cfg.ClassifierRules()),
		Validator:  quality.NewValidator(cfg.Validator.SpamKeywords),
		View:       a.view,
		Cache:      a.cache,
		Archive:    archive,
		Notifier:   newNotifier(cfg.Notifications.Telegram, baseLogger.With("component", "notifier")),
		Recorder:   a.monitor,
		Policies:   policies,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	a.orchestrator = usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Syncer:  a.pipeline,
		Timings: timings,
		Tick:    cfg.Orchestrator.Tick,
		Logger:  baseLogger.With("component", "orchestrator"),
	})

	a.scheduler = usecase.NewScheduler(infrascheduler.NewTickerScheduler(cfg.Quality.Tick), a.monitor)

	a.api = httpapi.NewServer(httpapi.Deps{
		Articles: a.view,
		Sync:     a.orchestrator,
		Quality:  a.monitor,
		Logger:   baseLogger.With("component", "http"),
	})

	if cfg.Connectivity.ProbeURL != "" {
		a.watcher = connectivity.NewWatcher(
			connectivity.NewProbe(cfg.Connectivity.ProbeURL, 0),
			a.orchestrator,
			cfg.Connectivity.ProbeInterval,
			baseLogger.With("component", "connectivity"),
		)
	}

	return a, nil
}

// Run restores cached state and serves until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.restore(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start quality scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.orchestrator.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return a.api.Run(gctx, a.cfg.HTTP.Addr)
	})
	if a.watcher != nil {
		g.Go(func() error {
			a.watcher.Run(gctx)
			return nil
		})
	}

	runErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	stopErr := a.scheduler.Stop(stopCtx)
	a.pipeline.Wait()

	return errs.Combine(runErr, stopErr)
}

// SyncOnce restores cached state, runs one pass over domains (all when empty)
// and waits for breaking notifications to be delivered.
func (a *Application) SyncOnce(ctx context.Context, domains ...domain.SyncDomain) (domain.PassResult, error) {
	a.restore(ctx)
	pass, err := a.orchestrator.Trigger(ctx, domains...)
	a.pipeline.Wait()
	return pass, err
}

// Report runs one monitor tick, optionally after a sync pass, and returns the quality report.
func (a *Application) Report(ctx context.Context, syncFirst bool) (domain.QualityReport, error) {
	if syncFirst {
		if _, err := a.SyncOnce(ctx); err != nil {
			return domain.QualityReport{}, err
		}
	} else {
		a.restore(ctx)
	}
	a.monitor.Tick(ctx, time.Now())
	return a.monitor.GenerateReport(), nil
}

// Sources lists the validated catalog.
func (a *Application) Sources() []domain.Source {
	return a.sources.All()
}

// Close releases the cache and archive.
func (a *Application) Close() error {
	var group errs.Group
	if a.cache != nil {
		group.Add(a.cache.Close())
	}
	if a.archive != nil {
		group.Add(a.archive.Close())
	}
	return group.Err()
}

func (a *Application) restore(ctx context.Context) {
	restored := a.pipeline.Restore(ctx)
	a.orchestrator.SeedLastSuccess(restored)
	if err := a.monitor.Restore(ctx); err != nil {
		a.logger.Warn("restore quality state", "error", err)
	}
}

func openCache(cfg config.CacheConfig) (ports.CacheStore, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return cache.OpenBolt(cfg.Path)
	}
}

func newNotifier(cfg config.TelegramConfig, logger *slog.Logger) ports.Notifier {
	if cfg.BotToken != "" && cfg.ChatID != "" {
		return telegram.NewNotifier(cfg.BotToken, cfg.ChatID)
	}
	return telegram.NewLogNotifier(logger)
}
