package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/api/handlers"
	"github.com/codyseavey/tcg-portfolio/internal/config"
	"github.com/codyseavey/tcg-portfolio/internal/database"
	"github.com/codyseavey/tcg-portfolio/internal/logging"
	"github.com/codyseavey/tcg-portfolio/internal/models"
	"github.com/codyseavey/tcg-portfolio/internal/seed"
	"github.com/codyseavey/tcg-portfolio/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	t.Setenv("FRONTEND_DIST_PATH", "")

	cfg := config.NewDefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "api.db")
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	db, err := database.Open(cfg.Database, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	holdings := services.NewHoldingService(db, cfg.OwnerID)
	snapshots := services.NewSnapshotService(db, holdings, cfg.Snapshots.Hour, cfg.Snapshots.GetCheckInterval(), logging.Nop())

	router, err := SetupRouter(cfg, db, holdings, snapshots, logging.Nop())
	require.NoError(t, err)
	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const charizard = `{"cardId":"base1-4","cardName":"Charizard","setName":"Base Set","grade":"PSA 10","purchasePrice":2500,"quantity":1}`

func TestCreateHolding_CreatedThenMerged(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/holdings", charizard)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.HoldingResponse](t, w)
	assert.Equal(t, "PSA 10", first.Holding.Grade)
	assert.Equal(t, config.DemoOwnerID, first.Holding.OwnerID)

	w = s.do(t, http.MethodPost, "/api/holdings",
		`{"cardId":"base1-4","cardName":"Charizard","setName":"Base Set","grade":"PSA 10","purchasePrice":1,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decode[models.HoldingResponse](t, w)
	assert.Equal(t, first.Holding.ID, merged.Holding.ID)
	assert.Equal(t, 3, merged.Holding.Quantity)
	assert.Equal(t, 2500.0, merged.Holding.PurchasePrice)
}

func TestCreateHolding_DefaultsGradeToRaw(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/holdings",
		`{"cardId":"base1-2","cardName":"Blastoise","setName":"Base Set","purchasePrice":0,"quantity":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.GradeRaw, decode[models.HoldingResponse](t, w).Holding.Grade)
}

func TestCreateHolding_ValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		fields     []string
		formErrors bool
	}{
		{
			name:   "missing fields",
			body:   `{}`,
			fields: []string{"cardId", "cardName", "setName", "purchasePrice", "quantity"},
		},
		{
			name:   "quantity zero",
			body:   `{"cardId":"x","cardName":"x","setName":"x","purchasePrice":1,"quantity":0}`,
			fields: []string{"quantity"},
		},
		{
			name:   "quantity too large",
			body:   `{"cardId":"x","cardName":"x","setName":"x","purchasePrice":1,"quantity":1000}`,
			fields: []string{"quantity"},
		},
		{
			name:   "fractional quantity",
			body:   `{"cardId":"x","cardName":"x","setName":"x","purchasePrice":1,"quantity":2.5}`,
			fields: []string{"quantity"},
		},
		{
			name:   "negative price",
			body:   `{"cardId":"x","cardName":"x","setName":"x","purchasePrice":-1,"quantity":1}`,
			fields: []string{"purchasePrice"},
		},
		{
			name:   "price above cap",
			body:   `{"cardId":"x","cardName":"x","setName":"x","purchasePrice":1000001,"quantity":1}`,
			fields: []string{"purchasePrice"},
		},
		{
			name:   "grade too long",
			body:   `{"cardId":"x","cardName":"x","setName":"x","grade":"` + strings.Repeat("g", 21) + `","purchasePrice":1,"quantity":1}`,
			fields: []string{"grade"},
		},
		{
			name:   "card id too long",
			body:   `{"cardId":"` + strings.Repeat("c", 101) + `","cardName":"x","setName":"x","purchasePrice":1,"quantity":1}`,
			fields: []string{"cardId"},
		},
		{
			name:       "malformed json",
			body:       `{"cardId":`,
			formErrors: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/holdings", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[handlers.ValidationErrorResponse](t, w)
			assert.Equal(t, "Invalid input", resp.Error)
			for _, f := range tt.fields {
				assert.NotEmpty(t, resp.Issues.FieldErrors[f], "expected error for %s: %s", f, w.Body.String())
			}
			if tt.formErrors {
				assert.NotEmpty(t, resp.Issues.FormErrors)
			}
		})
	}

	var count int64
	require.NoError(t, s.db.Model(&models.Holding{}).Count(&count).Error)
	assert.Zero(t, count, "rejected input must not be stored")
}

func TestUpdateHolding(t *testing.T) {
	s := newTestServer(t, nil)

	created := decode[models.HoldingResponse](t, s.do(t, http.MethodPost, "/api/holdings", charizard))
	path := "/api/holdings/" + created.Holding.ID

	t.Run("empty body", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, path, `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[handlers.ValidationErrorResponse](t, w)
		assert.Equal(t, []string{"At least one field must be provided"}, resp.Issues.FormErrors)
	})

	t.Run("only unknown fields", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, path, `{"cardName":"Other"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, path, `{"quantity":0}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[handlers.ValidationErrorResponse](t, w)
		assert.NotEmpty(t, resp.Issues.FieldErrors["quantity"])
	})

	t.Run("price zero", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, path, `{"purchasePrice":0}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[models.HoldingResponse](t, w)
		assert.Equal(t, 0.0, resp.Holding.PurchasePrice)
		assert.Equal(t, 1, resp.Holding.Quantity)
	})

	t.Run("both fields", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, path, `{"quantity":7,"purchasePrice":12.5}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[models.HoldingResponse](t, w)
		assert.Equal(t, 7, resp.Holding.Quantity)
		assert.Equal(t, 12.5, resp.Holding.PurchasePrice)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/holdings/nope", `{"quantity":2}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
	})
}

func TestHoldingsOfOtherOwnersAreNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	other := services.NewHoldingService(s.db, "someone-else")
	qty, price := 1, 10.0
	theirs, _, err := other.Create(context.Background(), models.CreateHoldingRequest{
		CardID: "base1-4", CardName: "Charizard", SetName: "Base Set",
		PurchasePrice: &price, Quantity: &qty,
	})
	require.NoError(t, err)

	path := "/api/holdings/" + theirs.ID
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, path, `{"quantity":5}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path+"/snapshots", "").Code)

	var still models.Holding
	require.NoError(t, s.db.Take(&still, "id = ?", theirs.ID).Error)
	assert.Equal(t, 1, still.Quantity)
}

func TestDeleteHolding(t *testing.T) {
	s := newTestServer(t, nil)

	created := decode[models.HoldingResponse](t, s.do(t, http.MethodPost, "/api/holdings", charizard))
	require.NoError(t, s.db.Create(&models.PriceSnapshot{
		ID: "snap-1", OwnerID: config.DemoOwnerID, HoldingID: created.Holding.ID,
		Value: 3000, CapturedAt: time.Now(),
	}).Error)

	path := "/api/holdings/" + created.Holding.ID
	w := s.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	var snaps int64
	require.NoError(t, s.db.Model(&models.PriceSnapshot{}).Count(&snaps).Error)
	assert.Zero(t, snaps)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, "").Code)
}

func TestGetPortfolio_Seeded(t *testing.T) {
	s := newTestServer(t, nil)
	_, err := seed.NewSeeder(s.db, config.DemoOwnerID, logging.Nop()).Run(context.Background())
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.PortfolioResponse](t, w)
	require.Len(t, resp.Holdings, 3)
	for _, h := range resp.Holdings {
		assert.Len(t, h.Snapshots, 1, "only the latest snapshot is returned")
		assert.Equal(t, config.DemoOwnerID, h.OwnerID)
	}
	assert.InDelta(t, 4100, resp.Summary.TotalInvested, 1e-9)
	assert.InDelta(t, 5166, resp.Summary.TotalValue, 1e-6)
	assert.InDelta(t, 26, resp.Summary.ProfitPercentage, 1e-6)

	// history of one holding has all three snapshots, oldest first
	w = s.do(t, http.MethodGet, "/api/holdings/"+resp.Holdings[0].ID+"/snapshots", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.SnapshotHistoryResponse](t, w)
	require.Len(t, history.Snapshots, 3)
	assert.True(t, history.Snapshots[0].CapturedAt.Before(history.Snapshots[2].CapturedAt))
}

func TestGetPortfolio_Empty(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"holdings":[],"summary":{"totalInvested":0,"totalValue":0,"totalProfit":0,"profitPercentage":0}}`,
		w.Body.String())
}

func TestPortfolioValueHistory(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/holdings", charizard)

	w := s.do(t, http.MethodPost, "/api/portfolio/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/portfolio/history?period=week", "")
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[models.ValueHistoryResponse](t, w)
	assert.Equal(t, "week", history.Period)
	require.Len(t, history.Snapshots, 1)
	assert.Equal(t, 2500.0, history.Snapshots[0].TotalInvested)

	w = s.do(t, http.MethodGet, "/api/portfolio/history?period=decade", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "month", decode[models.ValueHistoryResponse](t, w).Period)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/portfolio", "")

	w := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tcg_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 0.001,
			Burst:             2,
			MaxClients:        8,
		}
	})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/portfolio", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/portfolio", "").Code)

	w := s.do(t, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health checks are not limited
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "").Code)
}

func TestHoldingValidation_MistypedFieldDoesNotHideOthers(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/holdings", `{"cardId":"","quantity":1.5,"purchasePrice":-3}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	create := decode[handlers.ValidationErrorResponse](t, w)
	assert.Equal(t, []string{"Expected integer, received number 1.5"}, create.Issues.FieldErrors["quantity"])
	for _, f := range []string{"cardId", "cardName", "setName", "purchasePrice"} {
		assert.NotEmpty(t, create.Issues.FieldErrors[f], "expected error for %s: %s", f, w.Body.String())
	}

	created := decode[models.HoldingResponse](t, s.do(t, http.MethodPost, "/api/holdings", charizard))
	w = s.do(t, http.MethodPatch, "/api/holdings/"+created.Holding.ID, `{"quantity":"2","purchasePrice":-1}`)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	update := decode[handlers.ValidationErrorResponse](t, w)
	assert.Equal(t, []string{"Expected integer, received string"}, update.Issues.FieldErrors["quantity"])
	assert.Equal(t, []string{"Number must be greater than or equal to 0"}, update.Issues.FieldErrors["purchasePrice"])
	assert.Empty(t, update.Issues.FormErrors)
}
