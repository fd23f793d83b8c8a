package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"auditflow/internal/audits/assignment"
	auditshandler "auditflow/internal/audits/handler"
	auditmetrics "auditflow/internal/audits/metrics"
	auditsservice "auditflow/internal/audits/service"
	auditstore "auditflow/internal/audits/store"
	authhandler "auditflow/internal/auth/handler"
	"auditflow/internal/auth/password"
	authservice "auditflow/internal/auth/service"
	"auditflow/internal/auth/store/session"
	"auditflow/internal/auth/store/user"
	httpapi "auditflow/internal/http"
	"auditflow/internal/notify"
	"auditflow/internal/platform/config"
	"auditflow/internal/platform/database"
	"auditflow/internal/platform/httpserver"
	"auditflow/internal/platform/logger"
	"auditflow/internal/platform/metrics"
	"auditflow/internal/platform/redis"
	authmw "auditflow/pkg/platform/middleware/auth"
)

func main() {
	app := &cli.App{
		Name:  "auditflow",
		Usage: "purchase audit approval service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return withConfig(c, serve) },
			},
			{
				Name:   "migrate",
				Usage:  "create tables and indexes",
				Action: func(c *cli.Context) error { return withConfig(c, migrate) },
			},
			{
				Name:   "seed",
				Usage:  "create the default auditor and user accounts",
				Action: func(c *cli.Context) error { return withConfig(c, seed) },
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withConfig(c *cli.Context, fn func(ctx context.Context, cfg config.Config, log *slog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, cfg, log)
}

func openDB(ctx context.Context, cfg config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.InfoContext(ctx, "schema up to date", "driver", db.Driver())
	return nil
}

func seed(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	auth := authservice.New(user.New(db), session.New(), password.NewHasher(cfg.Security.BcryptCost),
		authservice.WithLogger(log))
	return auth.SeedDefaultUsers(ctx)
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	checks := map[string]httpapi.HealthChecker{"database": db}
	g, ctx := errgroup.WithContext(ctx)

	var sessions authservice.SessionStore
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client)
		checks["redis"] = redisClient
		log.InfoContext(ctx, "sessions stored in redis")
	} else {
		mem := session.New()
		sessions = mem
		g.Go(func() error { return mem.RunSweeper(ctx, time.Minute) })
	}

	var publisher notify.Publisher = notify.NewLogPublisher(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := notify.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.NotifyTopic)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = notify.NewFallbackPublisher(kafka, publisher, 5, 30*time.Second)
		checks["kafka"] = httpapi.CheckerFunc(kafka.Ping)
	}
	dispatcher := notify.NewDispatcher(publisher, log)
	g.Go(func() error { return dispatcher.Run(ctx) })

	reg := prometheus.DefaultRegisterer
	platformMetrics := metrics.New(reg)

	auth := authservice.New(user.New(db), sessions, password.NewHasher(cfg.Security.BcryptCost),
		authservice.WithLogger(log),
		authservice.WithMetrics(platformMetrics),
		authservice.WithSessionTTL(cfg.Session.TTL),
	)
	if cfg.Seed {
		if err := auth.SeedDefaultUsers(ctx); err != nil {
			return err
		}
	}
	gate := authmw.RequireSession(auth, cfg.Session.CookieName, log)

	store := auditstore.New(db)
	audits := auditsservice.New(store, assignment.New(store),
		auditsservice.WithLogger(log),
		auditsservice.WithMetrics(auditmetrics.New(reg)),
		auditsservice.WithNotifier(dispatcher),
		auditsservice.WithTransactor(db),
	)

	opts := httpapi.Options{
		Logger:         log,
		Production:     cfg.Server.Production(),
		BodyLimit:      cfg.Server.BodyLimit,
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         checks,
	}
	if cfg.Server.MetricsEnabled {
		opts.Metrics = platformMetrics
		opts.Gatherer = prometheus.DefaultGatherer
	}
	router := httpapi.NewRouter(opts,
		authhandler.New(auth, log, authhandler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
			TTL:    cfg.Session.TTL,
		}, gate),
		auditshandler.New(audits, log, gate),
	)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)
	g.Go(func() error {
		log.InfoContext(ctx, "starting auditflow", "addr", cfg.Server.Addr, "env", cfg.Server.Env, "driver", db.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
