package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-portfolio/internal/api"
	"github.com/codyseavey/tcg-portfolio/internal/config"
	"github.com/codyseavey/tcg-portfolio/internal/database"
	"github.com/codyseavey/tcg-portfolio/internal/logging"
	"github.com/codyseavey/tcg-portfolio/internal/seed"
	"github.com/codyseavey/tcg-portfolio/internal/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logging.New("info", "console")
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	if err := database.Initialize(cfg.Database, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	db := database.GetDB()

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SeedOnStart {
		if _, err := seed.NewSeeder(db, cfg.OwnerID, log).Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
	}

	// Initialize services
	holdingService := services.NewHoldingService(db, cfg.OwnerID)
	snapshotService := services.NewSnapshotService(db, holdingService, cfg.Snapshots.Hour, cfg.Snapshots.GetCheckInterval(), log)

	// Start snapshot service in background with panic recovery
	if cfg.Snapshots.Enabled {
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Error().Interface("panic", r).Msg("PANIC in snapshot service - restarting in 30 seconds")
						}
					}()
					snapshotService.Start(ctx)
				}()

				select {
				case <-ctx.Done():
					return
				case <-time.After(30 * time.Second):
					log.Info().Msg("Snapshot service restarting after panic recovery...")
				}
			}
		}()
	}

	router, err := api.SetupRouter(cfg, db, holdingService, snapshotService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("owner_id", cfg.OwnerID).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
