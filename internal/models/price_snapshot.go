package models

import (
	"time"
)

// PriceSnapshot is an observed value of one unit of a holding at a point
// in time. Rows are written by the external valuation process or the
// seed routine and never updated; they go away with their holding.
type PriceSnapshot struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	OwnerID    string    `json:"ownerId" gorm:"not null;size:64;index"`
	HoldingID  string    `json:"holdingId" gorm:"not null;size:36;index:idx_snapshots_holding_captured,priority:1"`
	Value      float64   `json:"value" gorm:"not null"`
	CapturedAt time.Time `json:"capturedAt" gorm:"not null;index:idx_snapshots_holding_captured,priority:2"`
}

// SnapshotHistoryResponse is the API response for a holding's snapshots
type SnapshotHistoryResponse struct {
	Snapshots []PriceSnapshot `json:"snapshots"`
}
