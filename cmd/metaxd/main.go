// Package main runs the MetaX ledger daemon: the wallet ledger core, the
// admin approval surface and the scheduled jobs behind one HTTP listener.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/DeepakDhaka201/MetaBE/internal/app"
	"github.com/DeepakDhaka201/MetaBE/internal/app/httpapi"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/admin"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/postgres"
	"github.com/DeepakDhaka201/MetaBE/internal/config"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefault("metaxd")
	cfg := config.FromEnv()
	settings := config.NewUpdatableProvider(config.SettingsFromEnv())

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("ping database")
		}
		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Fatal("run migrations")
		}

		pg := postgres.New(db)
		stores = app.Stores{
			Users:        pg,
			Wallets:      pg,
			Locks:        pg,
			Transactions: pg,
			Referrals:    pg,
			Incomes:      pg,
			Investments:  pg,
			Assignments:  pg,
			JobRuns:      pg,
			Audits:       pg,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	application, err := app.New(stores, settings, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	if cfg.AuditFile != "" {
		sink, err := admin.NewFileSink(cfg.AuditFile)
		if err != nil {
			log.WithError(err).Fatal("open audit sink")
		}
		defer sink.Close()
		application.Admin.WithSink(sink)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewHandler(application, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application stop")
	}
	log.Info("shutdown complete")
}
