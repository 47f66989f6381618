package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ideaforge/api/internal/app"
	"ideaforge/api/internal/config"
	"ideaforge/api/internal/export"
	"ideaforge/api/internal/history"
	"ideaforge/api/internal/scorecache"
	"ideaforge/api/internal/scoring"
	"ideaforge/api/internal/search"
	"ideaforge/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	historySvc := history.New(cfg.ReposDir)
	validator := scoring.NewClient(cfg.ValidatorURL, cfg.ValidatorAPIKey)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	service := app.New(cfg, dataStore, historySvc, searchService, validator, validator)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err := scorecache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, score reads fall back to Postgres: %v", err)
		} else {
			defer cache.Close()
			service.WithScoreCache(cache)
		}
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		artifacts, err := export.NewArtifactStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: report archive unavailable: %v", err)
		} else {
			service.WithArtifactStore(artifacts)
		}
	}

	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("IdeaForge API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
