package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/controllers"
	"gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.ApiService/middleware"
	container "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	config := ctr.GetConfig()
	logger.Logger.Info().
		Str("store", config.Store.Driver).
		Str("timezone", config.Sync.TimeZone).
		Msg("Starting iclock server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Build the sync engine; this connects the key-value store
	engine, err := ctr.GetEngine()
	if err != nil {
		logger.FatalWithError(err, "Failed to initialize sync engine")
	}
	registry, err := ctr.GetRegistry()
	if err != nil {
		logger.FatalWithError(err, "Failed to get device registry")
	}
	sweeper, err := ctr.GetSweeper()
	if err != nil {
		logger.FatalWithError(err, "Failed to get retention sweeper")
	}
	users, err := ctr.GetUserDirectory()
	if err != nil {
		logger.FatalWithError(err, "Failed to get user directory")
	}
	healthChecker, err := ctr.GetHealthChecker(ctx)
	if err != nil {
		logger.FatalWithError(err, "Failed to get health checker")
	}

	// Clear anything left over from previous days before terminals connect
	if _, _, err := sweeper.SweepIfDue(ctx); err != nil {
		logger.WithError(err).Warn("Startup retention sweep failed")
	}

	reporter := ctr.GetReporter(ctx)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(logger))

	// Configure CORS from config; terminals send no Origin and pass through
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	iclockController := controllers.NewIclockController(engine, reporter, config.Protocol, ctr.GetClock(), logger)
	adminController := controllers.NewAdminController(engine, registry, users, sweeper, ctr.GetIDGenerator(), ctr.GetClock(), logger,
		middleware.ServiceAuthMiddleware(config.Admin.APISecret))
	healthController := controllers.NewHealthController(healthChecker, logger)

	iclockController.RegisterRoutes(router)
	adminController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	// Get port from configuration
	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("iclock server running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
