package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleyhq/parley/internal/brain"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/httpapi"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	kv, err := store.NewStore(runCtx, store.Config{
		Backend:     cfg.StoreBackend,
		RedisAddr:   cfg.RedisAddr,
		RedisDB:     cfg.RedisDB,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer kv.Close()

	switch s := kv.(type) {
	case *store.MemoryStore:
		s.StartJanitor(runCtx, time.Minute)
		log.Printf("store backend: memory")
	case *store.RedisStore:
		log.Printf("store backend: redis")
	case *store.PostgresStore:
		s.StartJanitor(runCtx, time.Minute)
		log.Printf("store backend: postgres")
	}

	brainClient, err := brain.New(brain.Config{
		Mode:    cfg.BrainMode,
		HTTPURL: cfg.BrainHTTPURL,
		Timeout: cfg.BrainTimeout,
	})
	if err != nil {
		log.Fatalf("brain init failed: %v", err)
	}
	if _, ok := brainClient.(*brain.MockClient); ok {
		log.Printf("brain backend: mock (no BRAIN_HTTP_URL set)")
	} else {
		log.Printf("brain backend: http %s", cfg.BrainHTTPURL)
	}

	manager := transcript.NewManager(transcript.Config{
		SystemPrompt: cfg.SystemPrompt,
		Window:       cfg.HistoryWindow,
		TTL:          cfg.TranscriptTTL,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	}, kv, brainClient, metrics)

	api := httpapi.New(cfg, manager, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
