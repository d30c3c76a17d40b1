package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-lostfound/internal/api"
	"github.com/mr1hm/go-lostfound/internal/config"
	"github.com/mr1hm/go-lostfound/internal/geocode"
	"github.com/mr1hm/go-lostfound/internal/logging"
	"github.com/mr1hm/go-lostfound/internal/middleware"
	"github.com/mr1hm/go-lostfound/internal/reportstore"
)

const geocodeTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Report backend starting", "host", cfg.Backend.Host, "port", cfg.Backend.Port)

	if err := os.MkdirAll(filepath.Dir(cfg.Backend.DBPath), 0o755); err != nil {
		logging.Fatalf("Failed to create database directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Backend.UploadDir, 0o755); err != nil {
		logging.Fatalf("Failed to create upload directory: %v", err)
	}

	db, err := reportstore.NewSQLiteDB(cfg.Backend.DBPath)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var geocoder geocode.Reverser = geocode.Disabled{}
	if cfg.Backend.GeocoderEnabled {
		geocoder = geocode.NewNominatim(cfg.Backend.GeocoderURL, geocodeTimeout)
		slog.Info("reverse geocoding enabled", "url", cfg.Backend.GeocoderURL)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(db, geocoder, cfg.Backend.UploadDir)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Backend.Host, cfg.Backend.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
