// Package main is the entry point for the auth API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bidon15/socialauth/internal/auth"
	"github.com/Bidon15/socialauth/internal/config"
	"github.com/Bidon15/socialauth/internal/database"
	"github.com/Bidon15/socialauth/internal/handler"
	"github.com/Bidon15/socialauth/internal/middleware"
	"github.com/Bidon15/socialauth/internal/repository"
	"github.com/Bidon15/socialauth/internal/service"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting auth API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories and services
	userRepo := repository.NewUserRepository(db.Pool())
	connectionRepo := repository.NewConnectionRepository(db.Pool())

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	authService := service.NewAuthService(userRepo, connectionRepo, hasher, tokens, service.AuthServiceConfig{
		AvatarBaseURL: cfg.Auth.AvatarBaseURL,
		Logger:        logger,
	})

	oauthConfig := service.NewGoogleOAuthConfig(cfg.Auth)
	if oauthConfig == nil {
		logger.Warn("Google OAuth not configured; /login/google is disabled")
	}
	oauthService := service.NewOAuthService(userRepo, hasher, tokens, service.OAuthServiceConfig{
		OAuth2: oauthConfig,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Logger: logger,
	})

	secure := cfg.Server.IsProduction()
	authHandler := handler.NewAuthHandler(
		authService,
		oauthService,
		handler.NewSessionStore(cfg.Auth.SessionSecret, secure),
		handler.AuthHandlerConfig{SecureCookies: secure, Logger: logger},
	)

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		rlConfig := middleware.DefaultRateLimitConfig()
		if cfg.RateLimit.RequestsPerMinute > 0 {
			rlConfig.RequestsPerMinute = cfg.RateLimit.RequestsPerMinute
		}
		if cfg.RateLimit.BurstSize >= 0 {
			rlConfig.BurstSize = cfg.RateLimit.BurstSize
		}
		rateLimit = middleware.RateLimit(redis, rlConfig)
	}

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Operational endpoints
	r.Get("/health", handler.Health())
	r.Get("/ready", handler.Ready(
		handler.Component{Name: "database", Pinger: db},
		handler.Component{Name: "redis", Pinger: redis},
	))
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes, also served without the prefix
	r.Mount("/api/auth", authHandler.Routes(rateLimit))
	r.Mount("/", authHandler.Routes(rateLimit))

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      gzhttp.GzipHandler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}
