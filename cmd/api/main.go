// cmd/api/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/classifier"
	"finance-tracker/internal/config"
	"finance-tracker/internal/handler"
	"finance-tracker/internal/middleware"
	"finance-tracker/internal/service"
	"finance-tracker/internal/storage/postgres"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBConn)
	if err != nil {
		slog.Error("failed to connect to the database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ connected to PostgreSQL")

	store := postgres.NewStorage(pool)
	svc := service.New(store, service.Options{
		Classifier:      buildClassifier(ctx, cfg),
		DefaultCategory: cfg.DefaultCategory,
	})

	tokenService := auth.NewTokenService(cfg)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/v1/login", handler.NewAuthHandler(tokenService).Login)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	handler.NewFinanceHandler(svc, cfg.CurrencyPrefix).Routes(v1)

	slog.Info("🚀 server started", "port", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// buildClassifier returns the Gemini classifier behind the batcher, or a
// no-op one when no API key is configured.
func buildClassifier(ctx context.Context, cfg config.Config) classifier.Classifier {
	if cfg.GeminiAPIKey == "" {
		slog.Info("GEMINI_API_KEY not set, imports fall back to the default category")
		return classifier.Nop{}
	}

	model, err := classifier.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create Gemini client, classification disabled", "error", err)
		return classifier.Nop{}
	}
	return classifier.NewBatcher(model, classifier.BatcherOptions{
		BatchSize: cfg.ClassifierBatchSize,
		Timeout:   cfg.ClassifierTimeout,
	})
}
