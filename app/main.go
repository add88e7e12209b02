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

	"golang.org/x/sync/semaphore"

	"github.com/idchenko/phishset/app/api"
	"github.com/idchenko/phishset/app/cfg"
	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/features"
	"github.com/idchenko/phishset/app/fetch"
	"github.com/idchenko/phishset/app/hub"
	"github.com/idchenko/phishset/app/pipeline"
	"github.com/idchenko/phishset/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting PhishSet", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	configCache := config.NewCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "dir", appCfg.SourcesDir, "count", configCache.GetConfigCount())

	sourceRepo := database.NewSourceRepository(db)
	datasetRepo := database.NewDatasetRepository(db)

	limiter := semaphore.NewWeighted(int64(appCfg.FetchConcurrency))
	fetcher := fetch.NewFetcher(limiter, appCfg.FetchSizeLimit, appCfg.UserAgent)
	resolver := fetch.NewResolver(fetcher)
	extractor := features.NewExtractor(appCfg.FetchSizeLimit)
	collectionPipeline := pipeline.NewPipeline(fetcher, resolver, extractor)

	var snapshots tasks.SnapshotStore
	if appCfg.HubRepo != "" && appCfg.HubToken != "" {
		snapshots = hub.NewClient(appCfg.HubEndpoint, appCfg.HubRepo, appCfg.HubFilename, appCfg.HubToken)
		slog.Info("Dataset publishing enabled", "repo", appCfg.HubRepo, "filename", appCfg.HubFilename)
	} else {
		slog.Info("Dataset publishing disabled (HUB_REPO or HUB_TOKEN not set)")
	}

	scheduler := tasks.NewScheduler(configCache, sourceRepo, datasetRepo, collectionPipeline, snapshots)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	apiHandler := api.NewHandler(configCache, sourceRepo, datasetRepo, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
