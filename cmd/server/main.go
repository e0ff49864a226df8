// Package main implements the server entry point for the embeddable
// Postgres-backed data and auth API. This application follows Clean
// Architecture principles with clear separation of concerns across
// multiple layers: Engine (data access) -> Auth Core / Query Lang
// (business logic) -> HTTP API (interface). The main function demonstrates
// Dependency Injection, Factory patterns, and graceful shutdown handling.
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/config"
	"github.com/litepg/litepg-core/internal/authcore"
	"github.com/litepg/litepg-core/internal/authstore/postgres"
	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/engine"
	"github.com/litepg/litepg-core/internal/httpapi"
	"github.com/litepg/litepg-core/internal/kernel"
)

// Version information - set during build time via ldflags
var (
	version   = "1.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// printVersion prints version information and exits
func printVersion() {
	fmt.Printf("litepg-core version %s\n", version)
	if buildTime != "unknown" {
		fmt.Printf("Build Time: %s\n", buildTime)
	}
	if gitCommit != "unknown" {
		fmt.Printf("Git Commit: %s\n", gitCommit)
	}
	os.Exit(0)
}

// main implements the application bootstrap following Clean Architecture
// principles. It demonstrates Dependency Injection, Factory patterns, and
// proper resource management while maintaining clear separation of
// concerns across architectural layers.
func main() {

	// Check for version flag before any initialization
	if len(os.Args) > 1 {
		for _, arg := range os.Args[1:] {
			if arg == "--version" || arg == "-v" {
				printVersion()
			}
		}
	}

	// PHASE 1: Configuration and Infrastructure Setup
	// Load configuration using the centralized config management pattern.
	// This follows the 12-Factor App methodology for configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger using Factory pattern.
	// Zap provides high-performance structured logging with minimal
	// allocation overhead.
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() // Resource Management: Ensure log buffer is flushed on exit

	// PHASE 2: Bootstrap Database Connection and Health Check
	// Connect to the default project's database using connection pooling.
	// The DSN is constructed using the config's encapsulated helper method.
	db, err := pgxpool.New(context.Background(), cfg.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close() // Resource Management: Ensure database connection is closed

	// Test database connectivity using fail-fast pattern.
	// This ensures the application fails early if the database is unreachable.
	if err := db.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database successfully")

	// PHASE 3: Auth Store Initialization (Data Access Layer)
	// Repository Pattern: Abstract auth data access through a narrow
	// interface (domain.AuthStore) so Auth Core stays decoupled from pgx.
	authStore := postgres.NewStore(db)

	// PHASE 4: Token Codec and Auth Core Initialization (Business Logic Layer)
	// JWTCodec handles token generation and validation; Auth Core owns the
	// sign-up/sign-in/refresh/MFA state machine and depends only on
	// domain.AuthStore and domain.TokenCodec, never the concrete engine.
	tokenCodec := authcore.NewJWTCodec(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.KeyID)

	authService := authcore.NewService(authStore, tokenCodec, authcore.Config{
		AccessTokenTTL:          cfg.JWT.AccessExpiry,
		RefreshTokenTTL:         cfg.JWT.RefreshExpiry,
		Issuer:                  cfg.JWT.Issuer,
		RefreshFailureWindow:    cfg.Session.RefreshFailureWindow,
		RefreshFailureThreshold: cfg.Session.RefreshFailureThreshold,
	})

	// PHASE 5: Project Registry Initialization (Plugin Architecture)
	// Registry Pattern: lazily materialises one Engine Adapter (pgxpool)
	// per logical project, with the bootstrap project pre-registered and
	// marked active so the data API is usable immediately on startup.
	registry := engine.NewRegistry(cfg.Projects.BaseDir, func(p *domain.Project) string {
		return cfg.DSNFor(p.DatabasePath)
	}, logger)

	registry.Bootstrap(&domain.Project{
		ID:             cfg.Projects.DefaultName,
		Name:           cfg.Projects.DefaultName,
		DatabasePath:   cfg.Projects.DefaultDBName,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	})

	// PHASE 6: Kernel Initialization (Interface Adapters / Middleware Layer)
	// Kernel owns the middleware chain, project resolution, auth
	// classification, and per-project RLS binders, generalising the
	// router wiring a monolithic main() would otherwise inline.
	k := kernel.New(registry, tokenCodec, logger)

	// PHASE 7: Router Configuration and Middleware Chain Setup
	// Chi router provides lightweight, idiomatic HTTP routing with
	// middleware support; the Kernel builds the standard middleware chain
	// and hands off to httpapi.Mount for route registration.
	r := k.Router(func(rt chi.Router) {
		httpapi.Mount(rt, k, authService, tokenCodec)
	})

	// PHASE 8: Server Initialization and Startup
	// HTTP Server Configuration: Using Go's standard http.Server with a
	// custom handler. Server address is constructed using the config's
	// encapsulated helper method.
	server := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	// Concurrent Server Startup Pattern: start the server in a goroutine so
	// the main thread can handle shutdown signals without blocking startup.
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.GetServerAddr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// PHASE 9: Graceful Shutdown Implementation
	// Signal Handling Pattern: listen for OS signals to initiate graceful
	// shutdown, ensuring clean resource cleanup and no dropped requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
