package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/auth"
	"github.com/example/meeting-scheduler/internal/config"
	httptransport "github.com/example/meeting-scheduler/internal/http"
	"github.com/example/meeting-scheduler/internal/lock"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/metrics"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("scheduler exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	flags.SetOutput(stdout)
	configPath := flags.String("config", os.Getenv("SCHEDULER_CONFIG"), "path to the YAML configuration file")
	hashKey := flags.String("hash-api-key", "", "print the argon2id hash of an API key secret and exit")
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *hashKey != "" {
		hash, err := auth.HashKey(*hashKey, auth.DefaultArgon2idParams)
		if err != nil {
			return fmt.Errorf("hash api key: %w", err)
		}
		_, err = fmt.Fprintln(stdout, hash)
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	app, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if *migrateOnly {
		logger.Info("migrations applied, exiting")
		return nil
	}

	return app.Serve(ctx)
}

// daemon owns every long lived dependency of the service.
type daemon struct {
	cfg     config.Config
	logger  *slog.Logger
	handler http.Handler
	closers []func() error
}

func newDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *daemon, err error) {
	app := &daemon{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	dbConfig := sqlite.DefaultConfig(cfg.Database.Path)
	dbConfig.BusyTimeout = cfg.Database.BusyTimeout
	dbConfig.JournalMode = cfg.Database.JournalMode

	pool, err := sqlite.Open(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	if err := sqlite.Migrate(ctx, pool.DB(), logger); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	store := sqlite.NewStore(pool)

	checks := map[string]httptransport.Pinger{"database": pool}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		locker = lock.NewRedis(client, lock.RedisOptions{TTL: cfg.Redis.LockTTL, Logger: logger})
		checks["redis"] = redisPinger{client: client}
		logger.Info("using redis advisory locks", "addr", cfg.Redis.Address)
	} else {
		logger.Info("using in-process advisory locks")
	}

	location := cfg.Location()
	now := time.Now
	idGenerator := uuid.NewString

	availabilityService := application.NewAvailabilityService(store, sqlite.NewRetryHelper(sqlite.DefaultRetryConfig()), location, logger)
	meetingService := application.NewMeetingService(store, locker, idGenerator, now, location, logger)
	calendarService := application.NewCalendarService(store, locker, idGenerator, now, logger)

	authenticator := httptransport.Authenticator{}
	if cfg.Auth.JWTSecret != "" {
		authenticator.Tokens = auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, now)
	}
	if len(cfg.Auth.APIKeys) > 0 {
		authenticator.Keys = auth.NewKeyVerifier(apiKeys(cfg.Auth.APIKeys))
	}

	app.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Authenticator:       authenticator,
		Availability:        httptransport.NewAvailabilityHandler(availabilityService, logger),
		Meetings:            httptransport.NewMeetingHandler(meetingService, location, logger),
		Calendar:            httptransport.NewCalendarHandler(calendarService, logger),
		Health:              httptransport.NewHealthHandler(checks, logger),
		AvailabilityLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.AvailabilityRPS), cfg.RateLimit.AvailabilityBurst),
		Logger:              logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recover(logger),
		},
	})

	return app, nil
}

// Serve runs the API server, and the metrics server when enabled, until ctx
// is cancelled.
func (a *daemon) Serve(ctx context.Context) error {
	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}}

	if a.cfg.Metrics.Enabled {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		a.logger.Info("listening", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
				return
			}
			errCh <- nil
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "addr", srv.Addr, "error", err)
		}
	}
	a.logger.Info("scheduler stopped")
	return serveErr
}

// Close releases dependencies in reverse order of acquisition.
func (a *daemon) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close dependency", "error", err)
		}
	}
	a.closers = nil
}

func apiKeys(configured []config.APIKeyConfig) []auth.APIKey {
	keys := make([]auth.APIKey, 0, len(configured))
	for _, k := range configured {
		perms := make([]auth.Permission, 0, len(k.Permissions))
		for _, p := range k.Permissions {
			perms = append(perms, auth.Permission(p))
		}
		keys = append(keys, auth.APIKey{ID: k.ID, Hash: k.Hash, Subject: k.Subject, Permissions: perms})
	}
	return keys
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
