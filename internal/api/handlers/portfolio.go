package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/codyseavey/tcg-portfolio/internal/models"
	"github.com/codyseavey/tcg-portfolio/internal/services"
)

var validPeriods = map[string]bool{
	"week":   true,
	"month":  true,
	"3month": true,
	"year":   true,
	"all":    true,
}

type PortfolioHandler struct {
	holdings  *services.HoldingService
	snapshots *services.SnapshotService
	log       zerolog.Logger
}

func NewPortfolioHandler(holdings *services.HoldingService, snapshots *services.SnapshotService, log zerolog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		holdings:  holdings,
		snapshots: snapshots,
		log:       log,
	}
}

// GetPortfolio returns the owner's holdings with their latest snapshot and
// the summary totals.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	portfolio, err := h.holdings.Portfolio(c.Request.Context())
	if err != nil {
		serverError(c, h.log, err, "Failed to fetch portfolio")
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// GetValueHistory returns daily portfolio value snapshots for a period
// (week, month, 3month, year, all). Unknown periods fall back to month.
func (h *PortfolioHandler) GetValueHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	if !validPeriods[period] {
		period = "month"
	}

	snapshots, err := h.snapshots.GetHistory(c.Request.Context(), period)
	if err != nil {
		serverError(c, h.log, err, "Failed to fetch value history")
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

// TakeSnapshot records today's portfolio value now instead of waiting for
// the scheduled run.
func (h *PortfolioHandler) TakeSnapshot(c *gin.Context) {
	snapshot, err := h.snapshots.TakeSnapshot(c.Request.Context())
	if err != nil {
		serverError(c, h.log, err, "Failed to take snapshot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snapshot})
}
