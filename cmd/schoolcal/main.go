package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"schoolcal/config"
	"schoolcal/internal/clients/feed"
	"schoolcal/internal/clients/schoology"
	"schoolcal/internal/server"
	"schoolcal/internal/service"
	"schoolcal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logrus.NewEntry(logger)

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	lms := schoology.NewClient(cfg.SchoologyKey, cfg.SchoologySecret, cfg.SchoologyUID, schoology.DefaultBaseURL, log)
	feedClient := feed.NewClient(log)

	daysBack := config.DaysBack * 24 * time.Hour
	daysFwd := config.DaysFwd * 24 * time.Hour

	metadataSvc := service.NewMetadataService(store, lms, daysBack, daysFwd, log)
	marksSvc := service.NewMarksService(store, log)
	statusSvc := service.NewStatusService(marksSvc, metadataSvc, lms, config.SubmissionCacheMaxAge, log)
	customSvc := service.NewCustomService(store, cfg.Timezone, config.RepeatDays*24*time.Hour, log)
	settingsSvc := service.NewSettingsService(store, cfg.StackEvents, config.DefaultStackStart)
	annotateSvc := service.NewAnnotateService(
		feedClient, metadataSvc, statusSvc, marksSvc, customSvc, settingsSvc,
		service.CourseDueTimes(cfg.CourseDueTimes), cfg.Timezone, cfg.BaseURL(),
		config.EventLength, daysBack, daysFwd, log,
	)

	// Warm the lookup maps so the first feed request does not pay for a
	// full rebuild. Failure is fine, the pipeline degrades gracefully.
	if cfg.HasAPICredentials() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := metadataSvc.Load(ctx, false); err != nil {
				log.Warnf("Initial metadata load failed: %v", err)
			}
		}()
	} else {
		log.Warn("No Schoology API credentials, submission checks disabled")
	}

	srv := server.New(annotateSvc, metadataSvc, marksSvc, customSvc, settingsSvc, statusSvc, cfg.Timezone, daysBack, log)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: srv.Handler(),
	}

	go func() {
		log.Infof("Listening on %s", httpSrv.Addr)
		var err error
		if cfg.CertPath != "" && cfg.KeyPath != "" {
			err = httpSrv.ListenAndServeTLS(cfg.CertPath, cfg.KeyPath)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}
	log.Info("Stopped")
}
