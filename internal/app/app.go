// Package app wires configuration, storage, platform clients and the job
// registry into a runnable scheduler.
package app

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/localpulse/jobs/internal/config"
	"github.com/localpulse/jobs/pkg/alerts"
	"github.com/localpulse/jobs/pkg/database/pool"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/notify"
	"github.com/localpulse/jobs/pkg/repository"
	"github.com/localpulse/jobs/pkg/services"
	"github.com/localpulse/jobs/pkg/store"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Options struct {
	// Manual skips the startup ping so the single-job CLI can list jobs
	// without a reachable database
	Manual bool
}

type App struct {
	Config     *config.Config
	Pool       *pgxpool.Pool
	AlertsDB   *sql.DB
	Store      store.ConfigStore
	Alerts     *alerts.Service
	Registry   *jobs.Registry
	Runner     *jobs.Runner
	Metrics    *jobs.Metrics
	Prometheus *prometheus.Registry
	Failed     []string

	// Clients holds the HTTP client of each platform by name, for breaker
	// diagnostics
	Clients map[string]*services.HTTPClient

	logger *logger.Logger
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.New("app")
	a := &App{Config: cfg, logger: log}

	poolCfg := pool.DefaultConfig()
	if opts.Manual || usesMemoryStore(cfg) {
		poolCfg = pool.ManualConfig()
	}

	var err error
	a.Pool, err = pool.New(ctx, cfg.DatabaseURL(), poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	a.Store, err = newConfigStore(ctx, cfg, a.Pool)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.AlertsDB, err = alerts.Open(cfg.DatabaseURL())
	if err != nil {
		a.Close()
		return nil, err
	}
	alertsRepo := alerts.NewRepository(a.AlertsDB)

	a.Clients = make(map[string]*services.HTTPClient, 4)
	for _, name := range []string{"chat", "listings", "ads", "calendar"} {
		a.Clients[name] = services.NewHTTPClient(httpConfig(cfg, name))
	}

	chat := notify.NewClient(a.Clients["chat"], cfg.Chat.BaseURL, cfg.Chat.BotToken, cfg.Chat.ChatID)
	a.Alerts = alerts.NewService(alertsRepo, chat)

	a.Prometheus = prometheus.NewRegistry()
	a.Prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = jobs.NewMetrics(a.Prometheus)

	deps := &Deps{
		Store:    a.Store,
		Sink:     a.Alerts,
		Queries:  repository.New(a.Pool),
		Alerts:   alertsRepo,
		Listings: services.NewListingsClient(a.Clients["listings"], cfg.Listings.BaseURL, cfg.Listings.AccessToken),
		Ads:      services.NewAdsClient(a.Clients["ads"], cfg.Ads.BaseURL, cfg.Ads.APIVersion, cfg.Ads.AccessToken),
		Calendar: services.NewCalendarClient(a.Clients["calendar"], cfg.Calendar.BaseURL, cfg.Calendar.AccessToken),
	}

	a.Registry = jobs.NewRegistry(logger.New("job-registry"))
	a.Failed = Bootstrap(a.Registry, deps, Modules(), log)

	a.Runner = jobs.NewRunner(a.Registry, a.Store, a.Alerts, a.Metrics, jobs.RunnerConfig{
		JobTimeout:      cfg.Scheduler.JobTimeout,
		NotifyOnSuccess: cfg.Scheduler.NotifyOnSuccess,
	})
	return a, nil
}

// Close releases database handles
func (a *App) Close() {
	if a.AlertsDB != nil {
		if err := a.AlertsDB.Close(); err != nil {
			a.logger.Warn().Err(err).Str("action", "close_failed").Msg("Failed to close alerts database")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// usesMemoryStore reports a local run that must start without a database
func usesMemoryStore(cfg *config.Config) bool {
	return strings.EqualFold(cfg.Scheduler.StoreDriver, StoreDriverMemory)
}

func newConfigStore(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (store.ConfigStore, error) {
	switch strings.ToLower(cfg.Scheduler.StoreDriver) {
	case "", StoreDriverPostgres:
		return store.NewPostgresStore(db, cfg.Scheduler.JobsTable), nil
	case StoreDriverMemory:
		mem := store.NewMemoryStore()
		if cfg.Scheduler.SeedFile != "" {
			configs, err := store.LoadSeedFile(cfg.Scheduler.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := store.Seed(ctx, mem, configs); err != nil {
				return nil, err
			}
		}
		return mem, nil
	default:
		return nil, errors.Newf("unknown store driver %q", cfg.Scheduler.StoreDriver)
	}
}

func httpConfig(cfg *config.Config, name string) services.HTTPConfig {
	return services.HTTPConfig{
		Name:            name,
		Timeout:         cfg.HTTP.Timeout,
		BreakerFailures: cfg.HTTP.BreakerFailures,
		BreakerCooldown: cfg.HTTP.BreakerCooldown,
	}
}
