package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epicmotionSD/openconductor-sub010/internal/cache"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/internal/deployer"
	"github.com/epicmotionSD/openconductor-sub010/internal/events"
	"github.com/epicmotionSD/openconductor-sub010/internal/gateway"
	"github.com/epicmotionSD/openconductor-sub010/internal/hosting"
	"github.com/epicmotionSD/openconductor-sub010/internal/installer"
	"github.com/epicmotionSD/openconductor-sub010/internal/ledger"
	"github.com/epicmotionSD/openconductor-sub010/internal/metrics"
	"github.com/epicmotionSD/openconductor-sub010/internal/ratelimit"
	"github.com/epicmotionSD/openconductor-sub010/internal/registry"
	"github.com/epicmotionSD/openconductor-sub010/internal/router"
	"github.com/epicmotionSD/openconductor-sub010/internal/validator"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// Components are initialized in dependency order and registered with the
// central API layer as they come up, so that by the time the router is
// constructed every handler it resolves through the locator is in place:
//
//  1. Metrics registry and lifecycle event bus (no dependencies)
//  2. Backend stores: cache, billing ledger, rate limiter, deployment
//     records (a single Postgres pool is shared by the ledger and the
//     record store when the postgres backend is selected)
//  3. Clients and pipeline stages: registry, installer, validator,
//     hosting platform, deployer
//  4. The operation router, which dispatches across all of the above
//  5. The gateway server and, when enabled, the metrics endpoint
type Services struct {
	// Metrics is the Prometheus instrument registry shared by the router
	// and the pipeline stages.
	Metrics *metrics.Metrics

	// MetricsServer serves /metrics and /healthz on the side port.
	// Nil when metrics are disabled.
	MetricsServer *metrics.Server

	// Gateway is the protocol server that exposes the four operations
	// as tools.
	Gateway *gateway.Server

	// Router is the single entry point for operation execution. CLI
	// commands that run in-process dispatch through it directly.
	Router *router.Router

	// PricingWatcher applies live edits to the pricing file without a
	// restart. Started by the daemon loop, not by initialization.
	PricingWatcher *config.PricingWatcher

	bus     *events.Bus
	store   cache.Store
	ledger  ledger.Ledger
	limiter ratelimit.Limiter
	pool    *pgxpool.Pool
}

// InitializeServices creates every component the application needs and
// registers the API handlers in dependency order. On failure the already
// constructed backends are released before returning.
func InitializeServices(cfg *Config) (*Services, error) {
	gwCfg := cfg.GatewayConfig
	if gwCfg == nil {
		return nil, fmt.Errorf("gateway configuration not loaded")
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	svc := &Services{}
	ok := false
	defer func() {
		if !ok {
			svc.Close()
		}
	}()

	// Metrics and the lifecycle event bus come first so every later
	// component can record and publish from the moment it starts.
	svc.Metrics = metrics.New()

	svc.bus = events.NewBus()
	eventsAdapter := events.NewAPIAdapter(svc.bus)
	eventsAdapter.Register()

	store, err := newCacheStore(gwCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	svc.store = store
	cache.NewAPIAdapter(store).Register()

	// The ledger and the deployment record store share one connection
	// pool; the pool belongs to Services and outlives both.
	if gwCfg.Ledger.Backend == config.BackendPostgres {
		pool, err := pgxpool.New(initCtx, gwCfg.Ledger.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres pool: %w", err)
		}
		svc.pool = pool
	}

	led, err := newLedger(initCtx, gwCfg, svc.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	svc.ledger = led
	ledger.NewAPIAdapter(led).Register()

	registry.NewAPIAdapter(registry.NewClient(gwCfg.Registry)).Register()
	installer.NewAPIAdapter(installer.New(gwCfg.Validator)).Register()

	val := validator.New(gwCfg.Validator)
	validator.NewAPIAdapter(val).Register()

	records, err := newRecordStore(initCtx, gwCfg, svc.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize deployment records: %w", err)
	}
	dep := deployer.New(gwCfg.Deployer, hosting.NewClient(gwCfg.Hosting), records)
	dep.SetStateChangeCallback(eventsAdapter.PublishDeploymentTransition)
	deployer.NewAPIAdapter(dep).Register()

	limiter, err := ratelimit.NewFromConfig(gwCfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	svc.limiter = limiter
	ratelimit.NewAPIAdapter(limiter).Register()

	svc.Router = router.New(gwCfg.Cache, svc.Metrics)
	router.NewAPIAdapter(svc.Router).Register()

	svc.Gateway = gateway.NewServer(gwCfg.Gateway)

	if gwCfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", gwCfg.Gateway.Host, gwCfg.Metrics.Port)
		svc.MetricsServer = metrics.NewServer(addr, healthChecks(svc))
	}

	svc.PricingWatcher = config.NewPricingWatcher(cfg.ConfigPath, func(pricing config.PricingConfig) {
		led.SetPrices(ledger.PricesFromConfig(pricing))
		logging.Info("App", "Applied updated pricing configuration")
	})

	logging.Info("App", "All services initialized (cache=%s, ledger=%s, rateLimit=%s)",
		gwCfg.Cache.Backend, gwCfg.Ledger.Backend, gwCfg.RateLimit.Backend)

	ok = true
	return svc, nil
}

func newCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Backend == config.BackendRedis {
		return cache.NewRedisStore(cfg.Redis)
	}
	return cache.NewMemoryStore(cfg.MaxEntries), nil
}

func newLedger(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (ledger.Ledger, error) {
	prices := ledger.PricesFromConfig(cfg.Pricing)
	if cfg.Ledger.Backend == config.BackendPostgres {
		return ledger.NewPostgresLedger(ctx, pool, prices)
	}
	return ledger.NewMemoryLedger(prices), nil
}

// newRecordStore keeps deployment records in the same backend as the
// ledger: durable deployments make no sense next to a billing ledger
// that forgets, and vice versa.
func newRecordStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (deployer.RecordStore, error) {
	if pool != nil {
		return deployer.NewPostgresRecordStore(ctx, pool)
	}
	return deployer.NewMemoryRecordStore(), nil
}

// healthChecks reports the backends that have a meaningful liveness
// probe. Memory backends are omitted.
func healthChecks(svc *Services) map[string]metrics.HealthCheck {
	checks := map[string]metrics.HealthCheck{}
	if svc.pool != nil {
		pool := svc.pool
		checks["postgres"] = func(ctx context.Context) error {
			return pool.Ping(ctx)
		}
	}
	if pinger, ok := svc.store.(interface {
		Ping(ctx context.Context) error
	}); ok {
		checks["redis"] = pinger.Ping
	}
	return checks
}

// Close releases every backend the services hold. Safe to call on a
// partially initialized struct and more than once.
func (s *Services) Close() {
	if s.PricingWatcher != nil {
		if err := s.PricingWatcher.Stop(); err != nil {
			logging.Warn("App", "Failed to stop pricing watcher: %v", err)
		}
		s.PricingWatcher = nil
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			logging.Warn("App", "Failed to close event bus: %v", err)
		}
		s.bus = nil
	}
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			logging.Warn("App", "Failed to close rate limiter: %v", err)
		}
		s.limiter = nil
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			logging.Warn("App", "Failed to close ledger: %v", err)
		}
		s.ledger = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logging.Warn("App", "Failed to close cache: %v", err)
		}
		s.store = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
