package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"mindloom/internal/ai"
	"mindloom/internal/bots"
	"mindloom/internal/config"
	"mindloom/internal/db"
	"mindloom/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	if err := bots.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}

	var cache *bots.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(options)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("redis unavailable, running without bot config cache: %v", err)
		} else {
			cache = bots.NewCache(client, time.Duration(cfg.BotCacheTTLSecs)*time.Second)
		}
	}

	var aiClient ai.Client
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		log.Printf("GEMINI_API_KEY is not set; serving mock responses")
		aiClient = &ai.MockClient{}
	} else {
		aiClient = ai.NewGeminiClient(cfg)
	}

	app := server.New(cfg, aiClient, bots.NewStore(pool, cache))
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("mindloom api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
