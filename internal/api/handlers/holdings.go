package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/codyseavey/tcg-portfolio/internal/models"
	"github.com/codyseavey/tcg-portfolio/internal/services"
)

type HoldingHandler struct {
	holdings *services.HoldingService
	log      zerolog.Logger
}

func NewHoldingHandler(holdings *services.HoldingService, log zerolog.Logger) *HoldingHandler {
	return &HoldingHandler{
		holdings: holdings,
		log:      log,
	}
}

// CreateHolding adds a holding, or merges the quantity into the existing
// holding with the same card and grade. 201 on insert, 200 on merge.
func (h *HoldingHandler) CreateHolding(c *gin.Context) {
	var req models.CreateHoldingRequest
	if err := bindJSON(c, &req); err != nil {
		invalidInput(c, bindIssues(err))
		return
	}

	holding, created, err := h.holdings.Create(c.Request.Context(), req)
	if err != nil {
		h.serverError(c, err, "Failed to create holding")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, models.HoldingResponse{Holding: *holding})
}

// UpdateHolding changes quantity and/or purchase price of an owned holding
func (h *HoldingHandler) UpdateHolding(c *gin.Context) {
	var req models.UpdateHoldingRequest
	if err := bindJSON(c, &req); err != nil && !errors.Is(err, io.EOF) {
		invalidInput(c, bindIssues(err))
		return
	}
	if !req.HasChanges() {
		issues := newIssues()
		issues.addForm("At least one field must be provided")
		invalidInput(c, issues)
		return
	}

	holding, err := h.holdings.Update(c.Request.Context(), c.Param("id"), req)
	if errors.Is(err, services.ErrHoldingNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to update holding")
		return
	}

	c.JSON(http.StatusOK, models.HoldingResponse{Holding: *holding})
}

// DeleteHolding removes an owned holding and its snapshots
func (h *HoldingHandler) DeleteHolding(c *gin.Context) {
	err := h.holdings.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrHoldingNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to delete holding")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSnapshotHistory returns every snapshot of an owned holding, oldest first
func (h *HoldingHandler) GetSnapshotHistory(c *gin.Context) {
	snapshots, err := h.holdings.SnapshotHistory(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrHoldingNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to fetch snapshots")
		return
	}

	c.JSON(http.StatusOK, models.SnapshotHistoryResponse{Snapshots: snapshots})
}

func (h *HoldingHandler) serverError(c *gin.Context, err error, msg string) {
	serverError(c, h.log, err, msg)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

// serverError logs the cause and answers with a generic message so storage
// details never reach the client.
func serverError(c *gin.Context, log zerolog.Logger, err error, msg string) {
	log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
