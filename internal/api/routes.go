package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/api/handlers"
	"github.com/codyseavey/tcg-portfolio/internal/config"
	"github.com/codyseavey/tcg-portfolio/internal/database"
	"github.com/codyseavey/tcg-portfolio/internal/models"
	"github.com/codyseavey/tcg-portfolio/internal/services"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// RegisterValidators installs the custom binding rules on gin's validator.
func RegisterValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorsErr = fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
			return
		}
		validatorsErr = models.RegisterValidators(v)
	})
	return validatorsErr
}

func SetupRouter(cfg *config.Config, db *gorm.DB, holdingService *services.HoldingService, snapshotService *services.SnapshotService, log zerolog.Logger) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(Metrics())

	// Get frontend dist path from env
	frontendPath := os.Getenv("FRONTEND_DIST_PATH")
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	holdingHandler := handlers.NewHoldingHandler(holdingService, log)
	portfolioHandler := handlers.NewPortfolioHandler(holdingService, snapshotService, log)

	// API routes
	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		limiter, err := RateLimit(cfg.RateLimit, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		api.Use(limiter)
	}
	{
		holdings := api.Group("/holdings")
		{
			holdings.POST("", holdingHandler.CreateHolding)
			holdings.PATCH("/:id", holdingHandler.UpdateHolding)
			holdings.DELETE("/:id", holdingHandler.DeleteHolding)
			holdings.GET("/:id/snapshots", holdingHandler.GetSnapshotHistory)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("", portfolioHandler.GetPortfolio)
			portfolio.GET("/history", portfolioHandler.GetValueHistory)
			portfolio.POST("/snapshot", portfolioHandler.TakeSnapshot)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		})
	}

	return router, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
