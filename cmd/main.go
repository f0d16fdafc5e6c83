package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"catalog/internal/config/di"
	"catalog/internal/handlers"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
	"catalog/internal/shared/middleware"
)

func main() {
	ctx := context.Background()

	container, err := di.InitContainer()
	if err != nil {
		fmt.Printf("Failed to initialize container: %v\n", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: appError.ErrorHandler(),
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "catalog-api"})
	})

	handlers.RegisterRoutes(app, container)

	port := container.Config.Port
	logger.Infof(ctx, "Starting catalog-api server on port %s", port)

	serverErr := make(chan error, 1)
	go func() {
		if err := app.Listen(":" + port); err != nil {
			serverErr <- err
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal(ctx, err, "Error starting server")
	case sig := <-c:
		logger.Infof(ctx, "Received signal: %v", sig)
	}
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error(ctx, err, "Server forced to shutdown")
	} else {
		logger.Info(ctx, "Server shutdown complete")
	}

	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, err, "Error during container shutdown")
	}
}
