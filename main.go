package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/ender-auth/internal/api"
	"github.com/isdelr/ender-auth/internal/api/handlers"
	"github.com/isdelr/ender-auth/internal/auth"
	"github.com/isdelr/ender-auth/internal/config"
	"github.com/isdelr/ender-auth/internal/database"
	"github.com/isdelr/ender-auth/internal/logger"
	"github.com/isdelr/ender-auth/internal/monitoring"
	"github.com/isdelr/ender-auth/internal/services"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsProduction(), cfg.LogLevel)
	if cfg.UsingDevSecret {
		log.Warn().Msg("JWT_SECRET is not set; using the development default. Never deploy like this.")
	}

	// Set up database
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := database.Open(ctx, database.Options{
		Path:           cfg.DatabasePath,
		ReconnectDelay: cfg.DBReconnectDelay,
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer conn.Close()

	// Probe the connection in the background
	healthMonitor := monitoring.NewHealthMonitor(conn, cfg.DBHealthCheckSpec)
	if err := healthMonitor.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start database health monitor")
	}

	// Set up services
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	userService := services.NewUserService(conn)
	eventService := services.NewEventService(conn)
	authService := services.NewAuthService(userService, tokens, eventService)

	// Set up router
	router := api.NewRouter(
		api.RouterConfig{AllowedOrigins: cfg.AllowedOrigins},
		tokens,
		handlers.NewAuthHandler(authService, handlers.AuthHandlerOptions{
			Production:  cfg.IsProduction(),
			TokenCookie: cfg.TokenCookie,
			TokenTTL:    cfg.TokenTTL,
		}),
		handlers.NewEventHandler(eventService, cfg.IsProduction()),
	)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	healthMonitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
