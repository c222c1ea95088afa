package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"erp-shipping/config"
	"erp-shipping/internal/api"
	"erp-shipping/internal/file"
	"erp-shipping/internal/handler"
	"erp-shipping/internal/processor"
	"erp-shipping/internal/shipping"
	"erp-shipping/internal/store"
	"erp-shipping/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// Carrier settings are re-read on every request, so a config change
	// applies to the next call without a restart.
	var current atomic.Pointer[config.Config]
	log := logrus.StandardLogger()

	cfg, err := config.LoadConfig(*configPath, func(cfg *config.Config, err error) {
		if err != nil {
			log.WithError(err).Error("Failed to reload configuration, keeping previous")
			return
		}
		current.Store(cfg)
		if !logger.ApplyLevel(log, cfg.Log.Level) {
			log.WithField("level", cfg.Log.Level).Warn("Ignoring invalid log level")
		}
		log.WithField("level", log.GetLevel()).Info("Configuration reloaded")
	})
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	current.Store(cfg)

	log = logger.Setup(&cfg.Log)
	log.Info("Starting erp-shipping service")

	st, err := store.Open(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open document store")
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("Failed to migrate document store")
	}

	svc := shipping.NewService(st, func() *api.Registry {
		return api.NewRegistry(&current.Load().Carriers, log)
	}, log)

	sweeper := processor.NewTrackingSweeper(cfg.TrackingSweep, st, svc, log)
	if cfg.TrackingSweep.Enabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	if cfg.CatalogWatch.Enabled {
		importer := processor.NewCatalogImporter(&cfg.CatalogWatch, st, log)
		importer.Start(ctx)
		defer importer.Stop()

		watcher, err := file.NewWatcher(&cfg.CatalogWatch, log, importer)
		if err != nil {
			log.WithError(err).Fatal("Failed to create catalog watcher")
		}
		if err := watcher.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start catalog watcher")
		}
		defer watcher.Stop()

		log.WithFields(logrus.Fields{
			"watch_dir":     cfg.CatalogWatch.Directory,
			"file_pattern":  cfg.CatalogWatch.FilePattern,
			"processed_dir": cfg.CatalogWatch.ProcessedDir,
			"failed_dir":    cfg.CatalogWatch.FailedDir,
		}).Info("Catalog watcher started")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	handler.NewHandler(svc, sweeper, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"address":        cfg.Server.Address,
		"database":       cfg.Database.Driver,
		"tracking_sweep": cfg.TrackingSweep.Enabled,
		"catalog_watch":  cfg.CatalogWatch.Enabled,
	}).Info("Service started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}
