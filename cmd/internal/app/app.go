// Package app wires the Shiftwatch auth server runtime: config, logging,
// persistence, HTTP routes, metrics and the credential sweeper.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"shiftwatch/cmd/identity"
	authapi "shiftwatch/cmd/internal/auth/api"
	"shiftwatch/cmd/internal/auth/session"
	"shiftwatch/cmd/internal/migrations"
)

// App is the Shiftwatch server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth     *authapi.Handler
	sweeper  *Sweeper
	registry *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.EnsureTokenKey(log); err != nil {
		return nil, err
	}

	var (
		pool      *pgxpool.Pool
		dbEnabled bool
		directory identity.Directory
		store     session.Store
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		memDir, err := identity.NewMemoryDirectory()
		if err != nil {
			return nil, err
		}
		directory = memDir
		store = session.NewMemoryStore()
	} else {
		if cfg.RunMigrations {
			if err := migrations.Up(ctx, cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}

		var err error
		pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}

		pgDir, err := identity.NewPostgresDirectory(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		directory = pgDir
		store = session.NewPostgresStore(pool)
		dbEnabled = true

		log.Info("db.enabled.postgres_store")
	}

	guard, err := session.NewGuard(cfg.SessionConfig(), store, directory)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auth, err := authapi.NewHandler(log, cfg.APIConfig(), guard, directory,
		authapi.WithMetrics(authapi.NewMetrics(registry)),
		authapi.WithAuditor(authapi.NewAuditor(log, pool)),
	)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		auth:      auth,
		sweeper:   NewSweeper(log, store, cfg.SweepInterval, cfg.SweepRetention),
		registry:  registry,
	}, nil
}

// Run starts the HTTP server and the sweeper, and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.registry)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweeper.Run(sweepCtx)
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		runErr = err
	}

	stopSweeper()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		a.log.Error("server.shutdown.fail", "err", err)
		runErr = err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	if runErr == nil {
		a.log.Info("server.stopped")
	}
	return runErr
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
