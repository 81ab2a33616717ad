// Stockpulse, the multi-tenant inventory alerting service
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	stockpulseapi "github.com/stockpulse/stockpulse/internal/api"
	"github.com/stockpulse/stockpulse/internal/api/handler"
	"github.com/stockpulse/stockpulse/internal/api/middleware"
	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/db"
	"github.com/stockpulse/stockpulse/internal/health"
	"github.com/stockpulse/stockpulse/internal/notify"
	"github.com/stockpulse/stockpulse/internal/observability"
	"github.com/stockpulse/stockpulse/internal/push"
	"github.com/stockpulse/stockpulse/internal/seed"
	"github.com/stockpulse/stockpulse/internal/service"
	"github.com/stockpulse/stockpulse/internal/version"
	"github.com/stockpulse/stockpulse/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability -------------------------------------------------------
	obs, log, err := observability.New(ctx, &observability.Config{
		ServiceName:    "stockpulse",
		ServiceVersion: version.Version,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
		OTLPEndpoint:   cfg.OTel.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	slog.SetDefault(log)
	log.Info("starting stockpulse", "version", version.Version, "commit", version.Commit, "db_driver", cfg.DB.Driver)

	// --- Database ------------------------------------------------------------
	// db.New opens the connection, runs migrations (AutoMigrate for SQLite,
	// golang-migrate for Postgres), and returns the GORM handle plus an
	// optional pgxpool (non-nil only for postgres, used by River).
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	log.Info("database ready", "driver", cfg.DB.Driver)

	// --- Seed admin ----------------------------------------------------------
	if err := seed.EnsureAdmin(ctx, gormDB, seed.AdminOptions{
		Email:       cfg.App.SeedAdminEmail,
		Password:    cfg.App.SeedAdminPassword,
		CompanyName: cfg.App.SeedCompanyName,
	}, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// --- Alerting pipeline ----------------------------------------------------
	mailer := notify.NewMailer(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.FromAddress, cfg.Mail.Timeout)
	dispatcher := notify.NewDispatcher(gormDB, mailer, log)
	pusher := push.NewSender(gormDB, cfg.Push.Subscriber, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, log)
	if pusher == nil {
		log.Info("push delivery disabled (no VAPID keys configured)")
	}
	runner := service.NewAlertRunner(gormDB, dispatcher, pusher, cfg.Alert, log)

	// --- Worker queue --------------------------------------------------------
	// River migrations only run when Postgres is available.
	if pool != nil {
		if err := worker.MigrateRiver(ctx, pool); err != nil {
			return fmt.Errorf("river migrations: %w", err)
		}
		log.Info("river migrations applied")
	}

	wq, err := worker.New(ctx, pool, cfg.DB.Driver, cfg.Worker.Concurrency, runner, cfg.Alert.ScanInterval, log)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	if err := wq.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wq.Stop(stopCtx); err != nil {
			log.Error("worker stop error", "err", err)
		}
	}()

	// --- HTTP routes ---------------------------------------------------------
	mux := http.NewServeMux()
	stockpulseapi.RegisterRoutes(mux, stockpulseapi.Deps{
		Health:       health.New(db.NewPinger(gormDB)),
		Auth:         handler.NewAuthHandler(gormDB, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Alerts:       handler.NewAlertHandler(runner, log),
		Push:         handler.NewPushHandler(push.NewManager(gormDB, log)),
		Schedules:    handler.NewScheduleHandler(gormDB),
		JWTSecret:    cfg.JWT.Secret,
		ServiceToken: cfg.Alert.ServiceToken,
	})
	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      middleware.CORS(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Start server --------------------------------------------------------
	log.Info("http server listening", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
