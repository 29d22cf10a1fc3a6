// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/app"
	"github.com/your-org/jewelry-backend/internal/config"
	apphttp "github.com/your-org/jewelry-backend/internal/interfaces/http"
	"github.com/your-org/jewelry-backend/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg)
	logg.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("starting %s", cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logg, app.Options{Migrate: true})
	if err != nil {
		logg.WithError(err).Fatal("failed to build application")
	}

	go a.RunCartJanitor(ctx)

	server := apphttp.NewServer(cfg, logg, a.Router)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logg.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()
	logg.Info("shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logg.WithError(err).Error("HTTP server did not shut down cleanly")
	}
	a.Close(shutdownCtx)

	logg.Info("server shutdown completed")
}
