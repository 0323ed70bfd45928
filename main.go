package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ragpanel/ragpanel-be/internal/api"
	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/config"
	"github.com/ragpanel/ragpanel-be/internal/database"
	"github.com/ragpanel/ragpanel-be/internal/logger"
	"github.com/ragpanel/ragpanel-be/internal/monitoring"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/ragpanel/ragpanel-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsProduction())

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
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)
	accountService := services.NewAccountService(db, cfg.BcryptCost)
	eventService := services.NewEventService(db)
	statusService := services.NewStatusService(db)
	provisionService := services.NewProvisionService(db, services.LocatorBases{
		MongoBaseURI:     cfg.MongoBaseURI,
		BotBaseURL:       cfg.BotBaseURL,
		SchedulerBaseURL: cfg.SchedulerBaseURL,
		ScraperBaseURL:   cfg.ScraperBaseURL,
	})
	botService := services.NewBotService(cfg.BotAPIURL, cfg.BotTimeout)

	// Set up and run the background host stats updater
	statUpdater := monitoring.NewStatUpdater(hub)
	go statUpdater.Run()

	// Set up and run the downstream health checker
	healthChecker := monitoring.NewHealthChecker(statusService, eventService, hub, map[string]string{
		"bot":       cfg.BotBaseURL,
		"scheduler": cfg.SchedulerBaseURL,
		"scraper":   cfg.ScraperBaseURL,
	})
	go healthChecker.Run()

	// Set up router
	router := api.NewRouter(cfg, tokens, hub, accountService, provisionService, botService, eventService, statusService, statUpdater)

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
	healthChecker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
