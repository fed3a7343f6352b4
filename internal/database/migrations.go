package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/models"
)

// Migrate prepares legacy rows and then auto-migrates the schema. The
// cleanup runs first so the natural-key unique index can be created.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	if err := normalizeLegacyGrades(db, log); err != nil {
		return err
	}
	if err := foldDuplicateHoldings(db, log); err != nil {
		return err
	}
	return db.AutoMigrate(&models.Holding{}, &models.PriceSnapshot{}, &models.PortfolioValueSnapshot{})
}

// normalizeLegacyGrades rewrites NULL/blank grades to the RAW sentinel.
// Older rows were written by a validator that left the grade absent.
func normalizeLegacyGrades(db *gorm.DB, log zerolog.Logger) error {
	if !db.Migrator().HasTable("holdings") || !db.Migrator().HasColumn("holdings", "grade") {
		return nil
	}

	result := db.Exec(`UPDATE holdings SET grade = ? WHERE grade IS NULL OR TRIM(grade) = ''`, models.GradeRaw)
	if result.Error != nil {
		return fmt.Errorf("failed to normalize holding grades: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("rows", result.RowsAffected).Msg("Normalized blank holding grades")
	}
	return nil
}

type duplicateKey struct {
	OwnerID string
	CardID  string
	Grade   string
}

// foldDuplicateHoldings merges rows sharing a natural key into the oldest
// one: quantities are summed and snapshots re-pointed before the extra
// rows are deleted. Safe to run repeatedly.
func foldDuplicateHoldings(db *gorm.DB, log zerolog.Logger) error {
	if !db.Migrator().HasTable("holdings") {
		return nil
	}

	var dups []duplicateKey
	err := db.Table("holdings").
		Select("owner_id, card_id, grade").
		Group("owner_id, card_id, grade").
		Having("COUNT(*) > 1").
		Scan(&dups).Error
	if err != nil {
		return fmt.Errorf("failed to find duplicate holdings: %w", err)
	}

	hasSnapshots := db.Migrator().HasTable("price_snapshots")

	for _, key := range dups {
		err := db.Transaction(func(tx *gorm.DB) error {
			var rows []models.Holding
			if err := tx.Where("owner_id = ? AND card_id = ? AND grade = ?", key.OwnerID, key.CardID, key.Grade).
				Order("created_at ASC").
				Find(&rows).Error; err != nil {
				return err
			}
			if len(rows) < 2 {
				return nil
			}

			keeper := rows[0]
			total := 0
			extra := make([]string, 0, len(rows)-1)
			for _, r := range rows {
				total += r.Quantity
				if r.ID != keeper.ID {
					extra = append(extra, r.ID)
				}
			}

			if hasSnapshots {
				if err := tx.Model(&models.PriceSnapshot{}).
					Where("holding_id IN ?", extra).
					Update("holding_id", keeper.ID).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("id IN ?", extra).Delete(&models.Holding{}).Error; err != nil {
				return err
			}
			return tx.Model(&models.Holding{}).Where("id = ?", keeper.ID).Update("quantity", total).Error
		})
		if err != nil {
			return fmt.Errorf("failed to fold duplicate holdings for %s/%s/%s: %w", key.OwnerID, key.CardID, key.Grade, err)
		}
		log.Warn().
			Str("owner_id", key.OwnerID).
			Str("card_id", key.CardID).
			Str("grade", key.Grade).
			Msg("Folded duplicate holdings into one row")
	}

	return nil
}
