package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-lostfound/internal/backend"
	"github.com/mr1hm/go-lostfound/internal/config"
	"github.com/mr1hm/go-lostfound/internal/events"
	"github.com/mr1hm/go-lostfound/internal/geolocation"
	"github.com/mr1hm/go-lostfound/internal/logging"
	"github.com/mr1hm/go-lostfound/internal/markers"
	"github.com/mr1hm/go-lostfound/internal/middleware"
	"github.com/mr1hm/go-lostfound/internal/viewport"
	"github.com/mr1hm/go-lostfound/internal/web"
	"github.com/mr1hm/go-lostfound/internal/workflow"
)

const sweepInterval = time.Minute

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Lost & Found starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"api", cfg.API.BaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := backend.NewClient(cfg.API.BaseURL, cfg.API.Timeout, cfg.API.RateLimit)
	previews := workflow.NewPreviewStore()
	broadcaster := events.NewBroadcaster()

	geoOpts := geolocation.Options{
		HighAccuracy: cfg.Geolocation.HighAccuracy,
		Timeout:      cfg.Geolocation.Timeout,
		MaximumAge:   cfg.Geolocation.MaximumAge,
	}
	sessions := web.NewSessions(web.Deps{
		Source:       client,
		Submitter:    client,
		Normalizer:   markers.NewNormalizer(cfg.API.UploadsOrigin(), time.Now),
		Previews:     previews,
		Broadcaster:  broadcaster,
		Geolocation:  geoOpts,
		Clock:        workflow.SystemClock{},
		SuccessDelay: cfg.Workflow.SuccessDelay,
		MapSize:      viewport.DefaultSize,

		InitialCenter: &viewport.Point{Lat: cfg.Map.InitialLat, Lng: cfg.Map.InitialLng},
		DefaultRange:  cfg.Map.DefaultRange,
	}, cfg.Workflow.SessionTTL)
	go sessions.Run(ctx, sweepInterval)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(cfg.Server.RateLimitRPS))

	handler := web.NewHandler(sessions, previews, broadcaster, cfg.Workflow.SessionTTL)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
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

	cancel()
	broadcaster.Close() // ends open event streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	sessions.Close()

	slog.Info("shutdown complete")
}
