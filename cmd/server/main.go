package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"openstream/internal/api"
	"openstream/internal/auth"
	"openstream/internal/broker"
	"openstream/internal/config"
	"openstream/internal/db"
	"openstream/internal/presence"
	"openstream/internal/repository"
	"openstream/internal/services/collaboration"
	"openstream/internal/telemetry"
)

func main() {
	log.Println("Starting Openstream collaboration service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	jaegerShutdown, err := telemetry.InitJaeger("openstream-collab", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown Jaeger: %v", err)
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Presence and fan-out must be visible to every worker process, so
	// both sit on Redis.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	}
	log.Println("✓ Redis connected")

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	accessRepo := repository.NewBranchAccessRepository(database.DB)
	slideshowRepo := repository.NewSlideshowRepository(database.DB)
	registry := presence.NewRedisRegistry(redisClient)
	hub := collaboration.NewHub(broker.NewRedisBroker(redisClient))

	svc := collaboration.NewService(verifier, accessRepo, slideshowRepo, registry, hub, cfg.AuthTimeout)
	wsHandler := collaboration.NewHandler(svc)

	router := api.SetupRoutes(wsHandler)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on http://%s", addr)
		log.Printf("   GET /api/health")
		log.Printf("   WS  /ws/slideshows/{id}?branch={branch}")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Close the remaining WebSocket sessions; each runs its own presence
	// cleanup as it goes down.
	hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}
