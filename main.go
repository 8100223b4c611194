package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LMNRGroup/qr-je-sub001/adaptive"
	"github.com/LMNRGroup/qr-je-sub001/cache"
	"github.com/LMNRGroup/qr-je-sub001/config"
	_ "github.com/LMNRGroup/qr-je-sub001/docs" // Swagger docs
	"github.com/LMNRGroup/qr-je-sub001/handler"
	appLogger "github.com/LMNRGroup/qr-je-sub001/logger"
	"github.com/LMNRGroup/qr-je-sub001/middleware"
	redisClient "github.com/LMNRGroup/qr-je-sub001/redis"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Adaptive QR Link API
// @version 1.0
// @description QR short-link service whose destination content is selected per scan: date/time windows, day-of-week filters, or first/return visitor routing decide which content slot a scanner sees.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @tag.name Links
// @tag.description Create, update, and delete adaptive links and inspect their scan history (requires managementID)

// @tag.name Scans
// @tag.description Scan resolution endpoint hit by QR codes

// @tag.name QR
// @tag.description QR code rendering

// @tag.name System
// @tag.description Health checks and cache metrics

func main() {
	// Initialize logger
	appLogger.Initialize()

	// Load configuration
	cfg := config.MustLoadConfig()
	log.Info().Msg("Configuration loaded successfully")

	// Initialize Redis client
	rdb := redisClient.NewClient(cfg.Redis)

	// Initialize cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Visitor tracker backing first/return routing
	retention := time.Duration(cfg.Adaptive.TrackerRetentionDays) * 24 * time.Hour
	tracker := adaptive.NewRedisVisitorTracker(rdb, retention)
	log.Info().
		Int("retention_days", cfg.Adaptive.TrackerRetentionDays).
		Bool("degrade_on_tracker_error", cfg.Adaptive.DegradeOnTrackerError).
		Str("default_timezone", cfg.Adaptive.DefaultTimezone).
		Msg("Adaptive resolver initialized")

	// Create handler with dependency injection
	linkHandler := handler.NewLinkHandler(rdb, cacheClient, cfg, tracker)

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	// Register routes
	r.HandleFunc("/health", linkHandler.HealthCheck).Methods("GET")
	r.HandleFunc("/cache/metrics", linkHandler.CacheMetrics).Methods("GET")
	r.HandleFunc("/links", linkHandler.CreateLink).Methods("POST")
	r.HandleFunc("/links/{managementID}", linkHandler.UpdateLink).Methods("PUT")
	r.HandleFunc("/links/{managementID}", linkHandler.DeleteLink).Methods("DELETE")
	r.HandleFunc("/links/{managementID}/scans", linkHandler.GetScanHistory).Methods("GET")
	r.HandleFunc("/qr/{code}", linkHandler.GenerateQR).Methods("GET")

	// Swagger UI
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Scan route (must be last to avoid conflicts)
	r.HandleFunc("/{code}", linkHandler.HandleScan).Methods("GET")

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Close cache
	if cacheClient != nil {
		cacheClient.Close()
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server stopped gracefully")
}
