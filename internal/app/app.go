package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/smashcc/analytics/external/startgg"
	"github.com/smashcc/analytics/internal/config"
	"github.com/smashcc/analytics/internal/domain/bracket"
	"github.com/smashcc/analytics/internal/domain/metrics"
	"github.com/smashcc/analytics/internal/domain/tournament"
	repocache "github.com/smashcc/analytics/internal/infrastructure/repository/cache"
	"github.com/smashcc/analytics/internal/infrastructure/repository/memory"
	"github.com/smashcc/analytics/internal/infrastructure/repository/postgres"
	"github.com/smashcc/analytics/internal/interfaces/httpapi"
	"github.com/smashcc/analytics/internal/platform/cache"
	"github.com/smashcc/analytics/internal/platform/logging"
	"github.com/smashcc/analytics/internal/platform/resilience"
	"github.com/smashcc/analytics/internal/usecase"
)

// Services bundles the wired usecase layer so the API server and the
// precompute CLI share one construction path.
type Services struct {
	Sync       *usecase.SyncService
	Search     *usecase.SearchService
	Precompute *usecase.PrecomputeService
	Query      *usecase.QueryService
}

func BuildServices(cfg config.Config, logger *logging.Logger) (*Services, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	var clientCache startgg.Cache
	if cfg.StartGGCacheDir != "" {
		diskCache, err := startgg.NewDiskCache(cfg.StartGGCacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init provider disk cache: %w", err)
		}
		clientCache = diskCache
	}

	provider := startgg.NewClient(startgg.ClientConfig{
		BaseURL:           cfg.StartGGBaseURL,
		Token:             cfg.StartGGToken,
		Timeout:           cfg.StartGGTimeout,
		MaxAttempts:       cfg.StartGGMaxAttempts,
		RequestsPerMinute: cfg.StartGGRequestsPerMinute,
		Logger:            logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.StartGGCircuitEnabled,
			FailureThreshold: cfg.StartGGCircuitFailureCount,
			OpenTimeout:      cfg.StartGGCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.StartGGCircuitHalfOpenMax,
		},
		Cache:       clientCache,
		CacheMaxAge: cfg.StartGGCacheMaxAge,
	})

	var (
		tournamentRepo tournament.Repository
		eventRepo      tournament.EventRepository
		bundleRepo     bracket.Repository
		markRepo       tournament.SyncMarkRepository
		metricsRepo    metrics.Repository
		cleanup        = func() {}
	)

	if cfg.DBURL != "" {
		db, err := sqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary))
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		cleanup = func() { _ = db.Close() }

		tournamentRepo = postgres.NewTournamentRepository(db)
		eventRepo = postgres.NewEventRepository(db)
		bundleRepo = postgres.NewBundleRepository(db)
		markRepo = postgres.NewSyncMarkRepository(db)
		metricsRepo = postgres.NewMetricsRepository(db)
	} else {
		tournamentRepo = memory.NewTournamentRepository()
		eventRepo = memory.NewEventRepository()
		bundleRepo = memory.NewBundleRepository()
		markRepo = memory.NewSyncMarkRepository()
		metricsRepo = memory.NewMetricsRepository()
	}

	var store *cache.Store
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
		tournamentRepo = repocache.NewTournamentRepository(tournamentRepo, store)
	}

	syncSvc := usecase.NewSyncService(provider, tournamentRepo, eventRepo, bundleRepo, markRepo, logger, usecase.SyncServiceConfig{
		StaleAfter:    cfg.SyncStaleAfter,
		BundleWorkers: cfg.SyncBundleWorkers,
	})
	assembler := usecase.NewAssemblerService(logger)
	metricsSvc := usecase.NewMetricsService(usecase.NewLocationService())
	seriesSvc := usecase.NewSeriesService(tournamentRepo, eventRepo, logger)
	searchSvc := usecase.NewSearchService(syncSvc, assembler, metricsSvc, tournamentRepo, eventRepo, bundleRepo, logger)
	precomputeSvc := usecase.NewPrecomputeService(syncSvc, assembler, metricsSvc, seriesSvc, tournamentRepo, eventRepo, bundleRepo, metricsRepo, logger)
	querySvc := usecase.NewQueryService(metricsRepo, metricsSvc, seriesSvc, store, logger)

	return &Services{
		Sync:       syncSvc,
		Search:     searchSvc,
		Precompute: precomputeSvc,
		Query:      querySvc,
	}, cleanup, nil
}

func NewHTTPServer(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*http.Server, func(), error) {
	services, cleanup, err := BuildServices(cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}

	handler := httpapi.NewHandler(services.Query, services.Search, httpapi.HandlerDefaults{
		VideogameID:         cfg.DefaultVideogameID,
		MonthsBack:          cfg.DefaultMonthsBack,
		LargeEventThreshold: cfg.LargeEventThreshold,
		SearchTimeout:       cfg.SearchTimeout,
	}, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, httpapi.RateLimitConfig{
		Max:    cfg.RateLimitMax,
		Window: cfg.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}
