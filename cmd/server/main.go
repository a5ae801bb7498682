package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/api"
	"github.com/tallylabs/tally/internal/config"
	"github.com/tallylabs/tally/internal/db"
	"github.com/tallylabs/tally/internal/middleware"
	"github.com/tallylabs/tally/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	setupLogging(cfg.LogLevel)

	sqldb, err := db.Open(cfg.DBPath)
	if err != nil {
		logrus.WithError(err).Fatal("open database")
	}
	defer func() { _ = sqldb.Close() }()

	store, err := db.NewSQLiteStore(sqldb)
	if err != nil {
		logrus.WithError(err).Fatal("init store")
	}

	authn := middleware.NewAuthenticator(cfg.JWTSecret)
	authSvc := services.NewAuthService(cfg.ServiceKeyHash, authn.SignToken, cfg.TokenTTL)

	var notifiers []services.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, services.NewWebhookNotifier(cfg.WebhookURL))
	}
	dispatcher := services.NewDispatcher(cfg.DispatchQueueSize, cfg.DispatchWorkers, notifiers...)
	dispatcher.Start()

	scoreSvc := services.NewScoreService(store, dispatcher)
	router := api.New(scoreSvc, authSvc, authn, cfg.CORSEnabled)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logrus.Info("tally shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("server shutdown")
		}
		// Let queued score events drain before exit.
		dispatcher.Close()
		close(done)
	}()

	logrus.WithField("addr", cfg.Addr).Info("tally server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("server error")
	}
	<-done
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
