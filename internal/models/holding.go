package models

import (
	"strings"
	"time"
)

// GradeRaw is stored for holdings submitted without a grade, so the
// natural key never mixes an empty grade with a named one.
const GradeRaw = "RAW"

// Holding is a quantity of one graded card owned by one owner.
// (owner_id, card_id, grade) is unique and drives merge-on-create.
type Holding struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	OwnerID       string          `json:"ownerId" gorm:"not null;size:64;uniqueIndex:idx_holdings_natural_key,priority:1;index:idx_holdings_owner_created,priority:1"`
	CardID        string          `json:"cardId" gorm:"not null;size:100;uniqueIndex:idx_holdings_natural_key,priority:2"`
	CardName      string          `json:"cardName" gorm:"not null;size:120"`
	SetName       string          `json:"setName" gorm:"not null;size:120"`
	Grade         string          `json:"grade" gorm:"not null;size:20;default:'RAW';uniqueIndex:idx_holdings_natural_key,priority:3"`
	PurchasePrice float64         `json:"purchasePrice" gorm:"not null"`
	Quantity      int             `json:"quantity" gorm:"not null;default:1"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"index:idx_holdings_owner_created,priority:2"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Snapshots     []PriceSnapshot `json:"snapshots,omitempty" gorm:"foreignKey:HoldingID;constraint:OnDelete:CASCADE"`
}

// NaturalKey identifies a holding across owners' copies (cardId::grade).
// The seed routine uses it to remap snapshots onto cloned holdings.
func (h Holding) NaturalKey() string {
	return h.CardID + "::" + h.Grade
}

// LatestSnapshot returns the most recently captured snapshot, or nil.
func (h Holding) LatestSnapshot() *PriceSnapshot {
	var latest *PriceSnapshot
	for i := range h.Snapshots {
		s := &h.Snapshots[i]
		if latest == nil || s.CapturedAt.After(latest.CapturedAt) ||
			(s.CapturedAt.Equal(latest.CapturedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	return latest
}

// NormalizeGrade trims the grade and substitutes GradeRaw when blank.
func NormalizeGrade(grade *string) string {
	if grade == nil {
		return GradeRaw
	}
	g := strings.TrimSpace(*grade)
	if g == "" {
		return GradeRaw
	}
	return g
}
