package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/sharehub-be/internal/api"
	"github.com/isdelr/sharehub-be/internal/auth"
	"github.com/isdelr/sharehub-be/internal/config"
	"github.com/isdelr/sharehub-be/internal/database"
	"github.com/isdelr/sharehub-be/internal/logger"
	"github.com/isdelr/sharehub-be/internal/monitoring"
	"github.com/isdelr/sharehub-be/internal/services"
	"github.com/isdelr/sharehub-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Production)
	auth.Init(cfg.JWTSecret)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	itemService := services.NewItemService(db)
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(itemService, eventService, hub)
	go statUpdater.Run()

	// Set up and run the background expiry sweeper
	sweeper := monitoring.NewSweeper(itemService, eventService, hub)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start expiry sweeper")
	}

	// Set up router
	router := api.NewRouter(db, hub, itemService, userService, eventService, cfg.AllowedOrigin, cfg.Production)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
