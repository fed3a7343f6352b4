package models

import (
	"time"
)

// PortfolioValueSnapshot stores the daily portfolio summary for historical tracking
type PortfolioValueSnapshot struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerID          string    `json:"ownerId" gorm:"not null;size:64;uniqueIndex:idx_value_snapshots_owner_date,priority:1"`
	SnapshotDate     time.Time `json:"snapshotDate" gorm:"not null;uniqueIndex:idx_value_snapshots_owner_date,priority:2"`
	Holdings         int       `json:"holdings"`
	TotalQuantity    int       `json:"totalQuantity"`
	TotalInvested    float64   `json:"totalInvested"`
	TotalValue       float64   `json:"totalValue"`
	TotalProfit      float64   `json:"totalProfit"`
	ProfitPercentage float64   `json:"profitPercentage"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []PortfolioValueSnapshot `json:"snapshots"`
	Period    string                   `json:"period"` // "week", "month", "3month", "year", "all"
}
