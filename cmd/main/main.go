package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeRF-or-Nothing/go-user-server/internal/config"
	"github.com/NeRF-or-Nothing/go-user-server/internal/database"
	"github.com/NeRF-or-Nothing/go-user-server/internal/log"
	"github.com/NeRF-or-Nothing/go-user-server/internal/models/user"
	"github.com/NeRF-or-Nothing/go-user-server/internal/services"
	"github.com/NeRF-or-Nothing/go-user-server/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from .env and the environment
	cfg, err := config.Load(".env")
	if err != nil {
		panic(fmt.Sprintf("Error loading configuration: %s", err))
	}

	// Create server logger
	logger, err := log.NewLogger(cfg.Log.Development, cfg.Log.Debug, cfg.Log.Output...)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Select the user store. The mongo client is created and confirmed in the background;
	// the web server answers 503 until it is.
	var (
		store     services.UserStore
		readiness web.ReadinessChecker
		connector *database.Connector
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("Using in-memory user store, data will not persist")
		store = user.NewMemoryUserManager()
	default:
		connector = database.NewConnector(cfg.Mongo, logger)
		userManager := user.NewDeferredUserManager(connector.Database, cfg.Mongo.Collection, logger)
		connector.Start(userManager.EnsureIndexes)
		store = userManager
		readiness = connector
	}

	// Initialize services
	var events services.EventPublisher = services.NopEventPublisher{}
	if cfg.Events.URL != "" {
		publisher, err := services.NewAMQPEventPublisher(cfg.Events.URL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Error("Error initializing AMQP event publisher, user events disabled:", err)
		} else {
			events = publisher
		}
	}
	userService := services.NewUserService(store, events, logger)

	// Initialize web server
	server := web.NewWebServer(cfg.Server, userService, readiness, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Infof("Received %s, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down web server:", err)
		}
	}()

	if err := server.Run(cfg.Server.Addr()); err != nil {
		logger.Error("Error running web server:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := events.Close(); err != nil {
		logger.Error("Error closing event publisher:", err)
	}
	if connector != nil {
		if err := connector.Close(ctx); err != nil {
			logger.Error("Error disconnecting from MongoDB:", err)
		}
	}
	logger.Info("Server stopped")
}
