package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-portfolio/internal/metrics"
	"github.com/codyseavey/tcg-portfolio/internal/models"
)

var (
	// ErrHoldingNotFound covers both a missing holding and one that belongs
	// to another owner; callers must not be able to tell them apart.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("at least one field must be provided")
)

// HoldingService reads and writes holdings for a single owner
type HoldingService struct {
	db      *gorm.DB
	ownerID string
}

// NewHoldingService creates a holding service scoped to ownerID
func NewHoldingService(db *gorm.DB, ownerID string) *HoldingService {
	return &HoldingService{
		db:      db,
		ownerID: ownerID,
	}
}

// OwnerID returns the owner every operation is scoped to
func (s *HoldingService) OwnerID() string {
	return s.ownerID
}

// Create inserts a holding or, when the owner already holds the same card
// and grade, adds the quantity to the existing row. The existing purchase
// price is kept. created reports whether a new row was inserted.
func (s *HoldingService) Create(ctx context.Context, req models.CreateHoldingRequest) (*models.Holding, bool, error) {
	row := req.Holding(s.ownerID)
	row.ID = uuid.NewString()

	var out models.Holding
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single-statement upsert on the natural-key unique index
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "card_id"}, {Name: "grade"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("holdings.quantity + excluded.quantity"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		return tx.Where("owner_id = ? AND card_id = ? AND grade = ?", row.OwnerID, row.CardID, row.Grade).
			Take(&out).Error
	})
	if err != nil {
		metrics.HoldingMutationsTotal.WithLabelValues("create", "error").Inc()
		return nil, false, fmt.Errorf("failed to upsert holding %s: %w", row.NaturalKey(), err)
	}

	created := out.ID == row.ID
	if created {
		metrics.HoldingMutationsTotal.WithLabelValues("create", "created").Inc()
	} else {
		metrics.HoldingMutationsTotal.WithLabelValues("create", "merged").Inc()
	}
	return &out, created, nil
}

// Update applies the fields present in req to an owned holding.
func (s *HoldingService) Update(ctx context.Context, id string, req models.UpdateHoldingRequest) (*models.Holding, error) {
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}

	var out models.Holding
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findOwned(tx, id)
		if err != nil {
			return err
		}

		// Map updates so a purchase price of 0 is written rather than skipped
		if err := tx.Model(&models.Holding{}).Where("id = ?", existing.ID).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Take(&out, "id = ?", existing.ID).Error
	})
	if err != nil {
		return nil, s.mutationError("update", id, err)
	}

	metrics.HoldingMutationsTotal.WithLabelValues("update", "ok").Inc()
	return &out, nil
}

// Delete removes an owned holding. Its snapshots go with it through the
// ON DELETE CASCADE foreign key, inside the same statement.
func (s *HoldingService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findOwned(tx, id)
		if err != nil {
			return err
		}

		result := tx.Delete(&models.Holding{}, "id = ? AND owner_id = ?", existing.ID, s.ownerID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrHoldingNotFound
		}
		return nil
	})
	if err != nil {
		return s.mutationError("delete", id, err)
	}

	metrics.HoldingMutationsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// ListWithLatest returns the owner's holdings, newest first, each carrying
// at most its most recent snapshot.
func (s *HoldingService) ListWithLatest(ctx context.Context) ([]models.Holding, error) {
	db := s.db.WithContext(ctx)

	holdings := make([]models.Holding, 0)
	if err := db.Where("owner_id = ?", s.ownerID).Order("created_at DESC").Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	if len(holdings) == 0 {
		return holdings, nil
	}

	ids := make([]string, len(holdings))
	for i, h := range holdings {
		ids[i] = h.ID
	}

	latest, err := s.latestSnapshots(db, ids)
	if err != nil {
		return nil, err
	}

	for i := range holdings {
		if snap, ok := latest[holdings[i].ID]; ok {
			holdings[i].Snapshots = []models.PriceSnapshot{snap}
		}
	}
	return holdings, nil
}

// Portfolio returns the holdings with their latest snapshot and the summary.
func (s *HoldingService) Portfolio(ctx context.Context) (*models.PortfolioResponse, error) {
	holdings, err := s.ListWithLatest(ctx)
	if err != nil {
		return nil, err
	}

	summary := models.Summarize(holdings)
	metrics.SetPortfolioGauges(len(holdings), models.TotalQuantity(holdings), summary.TotalInvested, summary.TotalValue)

	return &models.PortfolioResponse{
		Holdings: holdings,
		Summary:  summary,
	}, nil
}

// SnapshotHistory returns every snapshot of an owned holding, oldest first.
func (s *HoldingService) SnapshotHistory(ctx context.Context, id string) ([]models.PriceSnapshot, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.findOwned(db, id); err != nil {
		if errors.Is(err, ErrHoldingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up holding %s: %w", id, err)
	}

	snapshots := make([]models.PriceSnapshot, 0)
	if err := db.Where("holding_id = ? AND owner_id = ?", id, s.ownerID).
		Order("captured_at ASC").Order("id ASC").
		Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots for holding %s: %w", id, err)
	}
	return snapshots, nil
}

// findOwned loads a holding only if it belongs to the service's owner.
func (s *HoldingService) findOwned(tx *gorm.DB, id string) (*models.Holding, error) {
	var h models.Holding
	err := tx.Where("id = ? AND owner_id = ?", id, s.ownerID).Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// latestSnapshots picks one snapshot per holding: greatest captured_at,
// ties broken by greatest id.
func (s *HoldingService) latestSnapshots(db *gorm.DB, holdingIDs []string) (map[string]models.PriceSnapshot, error) {
	var rows []models.PriceSnapshot
	err := db.Raw(`
		SELECT id, owner_id, holding_id, value, captured_at
		FROM (
			SELECT id, owner_id, holding_id, value, captured_at,
				ROW_NUMBER() OVER (PARTITION BY holding_id ORDER BY captured_at DESC, id DESC) AS rn
			FROM price_snapshots
			WHERE owner_id = ? AND holding_id IN ?
		) ranked
		WHERE rn = 1
	`, s.ownerID, holdingIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshots: %w", err)
	}

	out := make(map[string]models.PriceSnapshot, len(rows))
	for _, r := range rows {
		out[r.HoldingID] = r
	}
	return out, nil
}

func (s *HoldingService) mutationError(op, id string, err error) error {
	if errors.Is(err, ErrHoldingNotFound) {
		metrics.HoldingMutationsTotal.WithLabelValues(op, "not_found").Inc()
		return err
	}
	metrics.HoldingMutationsTotal.WithLabelValues(op, "error").Inc()
	return fmt.Errorf("failed to %s holding %s: %w", op, id, err)
}
