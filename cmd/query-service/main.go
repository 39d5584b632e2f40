package main

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/neogenix/labquery/internal/auth"
	"github.com/neogenix/labquery/internal/config"
	"github.com/neogenix/labquery/internal/database"
	"github.com/neogenix/labquery/internal/llm"
	"github.com/neogenix/labquery/internal/observability"
	"github.com/neogenix/labquery/internal/processor"
	"github.com/neogenix/labquery/internal/schema"
	"github.com/neogenix/labquery/internal/semantic"
)

func main() {
	ctx := context.Background()

	// Load and validate configuration before any resource is opened
	cfg := config.NewDefaultLoader().MustLoad(ctx)
	if err := cfg.ValidateWithContext(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	logger := observability.NewLogger("main")

	// Database pool: the one shared resource in the query path. Everything
	// downstream receives it by reference.
	pool, err := database.NewPool(database.PoolConfig{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Database,
		Username:       cfg.Database.Username,
		Password:       cfg.Database.Password,
		SSLMode:        cfg.Database.SSLMode,
		MinConns:       cfg.Database.MinConns,
		MaxConns:       cfg.Database.MaxConns,
		AcquireTimeout: cfg.Database.AcquireTimeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize database pool: ", err)
	}
	defer pool.Close()

	executor := database.NewExecutor(pool, cfg.Database.StatementTimeout)

	// Translator with circuit breaker protection
	claudeClient, err := llm.NewClaudeClient(cfg.Claude.APIKey, cfg.Claude.Model)
	if err != nil {
		log.Fatal("Failed to initialize LLM client: ", err)
	}
	llmClient := llm.NewCircuitBreakerClient(claudeClient, "claude", llm.DefaultCircuitBreakerConfig)

	// Example store for similarity-based prompt enrichment
	store, err := semantic.NewPostgresStore(semantic.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to initialize example store: ", err)
	}
	defer store.Close()

	// Redis caches question->SQL translations only
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Auth manager with periodic credential cleanup
	authManager := auth.NewAuthManager(auth.AuthConfig{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiry:      cfg.Auth.JWTExpiry,
		RateLimit:      cfg.Auth.RateLimit,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
	})
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			authManager.CleanupExpired()
		}
	}()

	// Health checks over every external dependency
	healthChecker := observability.NewHealthChecker()

	healthChecker.Register("database", observability.DatabaseHealthCheck(func(ctx context.Context) error {
		return pool.Ping(ctx)
	}))

	healthChecker.Register("redis", observability.RedisHealthCheck(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}))

	healthChecker.Register("llm", observability.LLMHealthCheck(func() string {
		return llmClient.State().String()
	}))

	healthChecker.Register("memory", observability.MemoryHealthCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	// Query processor wires the pipeline together
	qp := processor.NewQueryProcessor(llmClient, store, executor, schema.NewCatalog(), rdb, processor.ProcessorConfig{
		MaxQuestionLength: cfg.Query.MaxQuestionLength,
		CacheTTL:          cfg.Query.CacheTTL,
		SimilarExamples:   cfg.Query.SimilarExamples,
		StoreExamples:     cfg.Query.StoreExamples,
	})
	qp.SetHealthChecker(healthChecker)

	router := qp.SetupRoutes(authManager)

	// In-process metrics snapshot
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"metrics":   observability.GetGlobalMetrics().GetAll(),
			"timestamp": time.Now(),
		})
	})

	// Auth handlers for login and user management
	authHandlers := auth.NewAuthHandlers(authManager)
	authHandlers.SetupRoutes(router.Group("/api/v1"))

	port := cfg.Server.Port
	logger.Info(ctx, "Query service starting", map[string]interface{}{
		"port":    port,
		"version": "1.0.0",
	})
	if err := router.Run(":" + port); err != nil {
		logger.Error(ctx, "Failed to start server", err, nil)
		log.Fatal("Failed to start server: ", err)
	}
}
