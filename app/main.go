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

	"github.com/ipotekakrym/blogpub/app/api"
	"github.com/ipotekakrym/blogpub/app/article"
	"github.com/ipotekakrym/blogpub/app/cache"
	"github.com/ipotekakrym/blogpub/app/cfg"
	"github.com/ipotekakrym/blogpub/app/importer"
	"github.com/ipotekakrym/blogpub/app/notify"
	"github.com/ipotekakrym/blogpub/app/sitemap"
	"github.com/ipotekakrym/blogpub/app/store"
	"github.com/ipotekakrym/blogpub/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting BlogPub server", "version", appCfg.Version)

	kv, err := store.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open state database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	state := store.NewState(kv)

	source := article.NewSource(appCfg.ArticlesDir)
	if err := source.Run(); err != nil {
		slog.Error("Failed to load articles", "dir", appCfg.ArticlesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Articles loaded", "count", source.Count())

	var docCache *cache.Cache
	if appCfg.RedisAddr != "" {
		docCache, err = cache.New(appCfg.RedisAddr)
		if err != nil {
			slog.Warn("Redis unavailable, sitemap document caching disabled", "addr", appCfg.RedisAddr, "error", err)
			docCache = nil
		} else {
			defer docCache.Close()
			slog.Info("Sitemap document cache enabled", "addr", appCfg.RedisAddr)
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	newsletter := notify.NewNewsletterClient(appCfg.NewsletterUrl, appCfg.UserAgent, httpClient)
	indexNow := notify.NewIndexNowClient(appCfg.IndexNowUrl, appCfg.IndexNowKey,
		appCfg.BaseUrl, appCfg.UserAgent, httpClient, state)
	publisher := notify.NewPublisher(source, state, newsletter, indexNow)

	feedImporter := importer.NewImporter(source, httpClient, appCfg.UserAgent)

	builder := sitemap.NewBuilder()
	pages := sitemap.DefaultStaticPages()

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(source, state, publisher, builder, pages, docCache)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(source, state, builder, pages, scheduler, feedImporter, docCache)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
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

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
