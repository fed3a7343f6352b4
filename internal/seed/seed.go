// Package seed rebuilds the template portfolio and clones it into the
// demo owner's account.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/metrics"
	"github.com/codyseavey/tcg-portfolio/internal/models"
)

// TemplateOwnerID owns the master copy that demo data is cloned from.
const TemplateOwnerID = "demo-template"

// Result reports what one seed run wrote.
type Result struct {
	TemplateHoldings  int `json:"templateHoldings"`
	TemplateSnapshots int `json:"templateSnapshots"`
	DemoHoldings      int `json:"demoHoldings"`
	DemoSnapshots     int `json:"demoSnapshots"`
}

type templateHolding struct {
	CardID        string
	CardName      string
	SetName       string
	Grade         string
	PurchasePrice float64
	Quantity      int
}

var templateHoldings = []templateHolding{
	{CardID: "base1-4", CardName: "Charizard", SetName: "Base Set", Grade: "PSA 10", PurchasePrice: 2500, Quantity: 1},
	{CardID: "base1-2", CardName: "Blastoise", SetName: "Base Set", Grade: "PSA 9", PurchasePrice: 900, Quantity: 1},
	{CardID: "base1-15", CardName: "Venusaur", SetName: "Base Set", Grade: "PSA 9", PurchasePrice: 700, Quantity: 1},
}

// Each template holding gets one snapshot per step: a value relative to
// 1.2x its purchase price, captured the given number of days ago.
var snapshotSteps = []struct {
	factor  float64
	daysAgo int
}{
	{factor: 0.9, daysAgo: 60},
	{factor: 1.0, daysAgo: 30},
	{factor: 1.05, daysAgo: 0},
}

// Seeder runs the seed routine against a database
type Seeder struct {
	db      *gorm.DB
	ownerID string
	log     zerolog.Logger
	now     func() time.Time
}

// NewSeeder creates a seeder that clones the template into ownerID
func NewSeeder(db *gorm.DB, ownerID string, log zerolog.Logger) *Seeder {
	return &Seeder{
		db:      db,
		ownerID: ownerID,
		log:     log.With().Str("component", "seed").Logger(),
		now:     time.Now,
	}
}

// Run wipes template and demo data and rebuilds both in one transaction.
// Readers see either the old data set or the complete new one.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	var result Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owners := []string{s.ownerID, TemplateOwnerID}

		if err := tx.Where("owner_id IN ?", owners).Delete(&models.PriceSnapshot{}).Error; err != nil {
			return fmt.Errorf("failed to clear snapshots: %w", err)
		}
		if err := tx.Where("owner_id IN ?", owners).Delete(&models.Holding{}).Error; err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}

		template, templateSnaps, err := s.createTemplate(tx)
		if err != nil {
			return err
		}
		result.TemplateHoldings = len(template)
		result.TemplateSnapshots = len(templateSnaps)

		demo, demoSnaps, err := s.cloneInto(tx, template, templateSnaps)
		if err != nil {
			return err
		}
		result.DemoHoldings = len(demo)
		result.DemoSnapshots = len(demoSnaps)
		return nil
	})
	if err != nil {
		metrics.SeedRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.SeedRunsTotal.WithLabelValues("success").Inc()
	s.log.Info().
		Int("holdings", result.DemoHoldings).
		Int("snapshots", result.DemoSnapshots).
		Str("owner_id", s.ownerID).
		Msg("Seeded template + demo data")
	return &result, nil
}

func (s *Seeder) createTemplate(tx *gorm.DB) ([]models.Holding, []models.PriceSnapshot, error) {
	now := s.now()

	holdings := make([]models.Holding, 0, len(templateHoldings))
	for i, t := range templateHoldings {
		holdings = append(holdings, models.Holding{
			ID:            uuid.NewString(),
			OwnerID:       TemplateOwnerID,
			CardID:        t.CardID,
			CardName:      t.CardName,
			SetName:       t.SetName,
			Grade:         t.Grade,
			PurchasePrice: t.PurchasePrice,
			Quantity:      t.Quantity,
			// keep listing order stable: first template entry is oldest
			CreatedAt: now.Add(time.Duration(i-len(templateHoldings)) * time.Second),
		})
	}
	if err := tx.Create(&holdings).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create template holdings: %w", err)
	}

	snapshots := make([]models.PriceSnapshot, 0, len(holdings)*len(snapshotSteps))
	for _, h := range holdings {
		base := h.PurchasePrice * 1.2
		for _, step := range snapshotSteps {
			snapshots = append(snapshots, models.PriceSnapshot{
				ID:         uuid.NewString(),
				OwnerID:    TemplateOwnerID,
				HoldingID:  h.ID,
				Value:      base * step.factor,
				CapturedAt: now.AddDate(0, 0, -step.daysAgo),
			})
		}
	}
	if err := tx.Create(&snapshots).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create template snapshots: %w", err)
	}

	return holdings, snapshots, nil
}

// cloneInto copies the template holdings to the target owner with fresh
// ids, then re-points each template snapshot at the clone sharing its
// natural key (cardId::grade).
func (s *Seeder) cloneInto(tx *gorm.DB, template []models.Holding, templateSnaps []models.PriceSnapshot) ([]models.Holding, []models.PriceSnapshot, error) {
	clones := make([]models.Holding, 0, len(template))
	for _, h := range template {
		clones = append(clones, models.Holding{
			ID:            uuid.NewString(),
			OwnerID:       s.ownerID,
			CardID:        h.CardID,
			CardName:      h.CardName,
			SetName:       h.SetName,
			Grade:         h.Grade,
			PurchasePrice: h.PurchasePrice,
			Quantity:      h.Quantity,
			CreatedAt:     h.CreatedAt,
		})
	}
	if err := tx.Create(&clones).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to clone holdings: %w", err)
	}

	cloneIDByKey := make(map[string]string, len(clones))
	for _, h := range clones {
		cloneIDByKey[h.NaturalKey()] = h.ID
	}
	templateKeyByID := make(map[string]string, len(template))
	for _, h := range template {
		templateKeyByID[h.ID] = h.NaturalKey()
	}

	snapshots := make([]models.PriceSnapshot, 0, len(templateSnaps))
	for _, snap := range templateSnaps {
		key, ok := templateKeyByID[snap.HoldingID]
		if !ok {
			continue
		}
		holdingID, ok := cloneIDByKey[key]
		if !ok {
			continue
		}
		snapshots = append(snapshots, models.PriceSnapshot{
			ID:         uuid.NewString(),
			OwnerID:    s.ownerID,
			HoldingID:  holdingID,
			Value:      snap.Value,
			CapturedAt: snap.CapturedAt,
		})
	}
	if len(snapshots) > 0 {
		if err := tx.Create(&snapshots).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to clone snapshots: %w", err)
		}
	}

	return clones, snapshots, nil
}
