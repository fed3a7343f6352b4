package models

import (
	"github.com/shopspring/decimal"
)

// PortfolioSummary aggregates cost basis and latest value over holdings.
type PortfolioSummary struct {
	TotalInvested    float64 `json:"totalInvested"`
	TotalValue       float64 `json:"totalValue"`
	TotalProfit      float64 `json:"totalProfit"`
	ProfitPercentage float64 `json:"profitPercentage"`
}

// PortfolioResponse is the API response for GET /api/portfolio
type PortfolioResponse struct {
	Holdings []Holding        `json:"holdings"`
	Summary  PortfolioSummary `json:"summary"`
}

var hundred = decimal.NewFromInt(100)

// Invested is purchase price times quantity.
func (h Holding) Invested() decimal.Decimal {
	return decimal.NewFromFloat(h.PurchasePrice).Mul(decimal.NewFromInt(int64(h.Quantity)))
}

// CurrentValue is the latest snapshot value times quantity. Without a
// snapshot the holding is assumed to be worth its cost basis.
func (h Holding) CurrentValue() decimal.Decimal {
	latest := h.LatestSnapshot()
	if latest == nil {
		return h.Invested()
	}
	return decimal.NewFromFloat(latest.Value).Mul(decimal.NewFromInt(int64(h.Quantity)))
}

// Summarize computes the portfolio summary in one pass. Sums are exact
// decimals so the result does not depend on holding order.
func Summarize(holdings []Holding) PortfolioSummary {
	invested := decimal.Zero
	value := decimal.Zero
	for _, h := range holdings {
		invested = invested.Add(h.Invested())
		value = value.Add(h.CurrentValue())
	}

	profit := value.Sub(invested)
	pct := decimal.Zero
	if !invested.IsZero() {
		pct = profit.Mul(hundred).DivRound(invested, 8)
	}

	return PortfolioSummary{
		TotalInvested:    invested.InexactFloat64(),
		TotalValue:       value.InexactFloat64(),
		TotalProfit:      profit.InexactFloat64(),
		ProfitPercentage: pct.InexactFloat64(),
	}
}

// TotalQuantity sums quantities across holdings.
func TotalQuantity(holdings []Holding) int {
	total := 0
	for _, h := range holdings {
		total += h.Quantity
	}
	return total
}
