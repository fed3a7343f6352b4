package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-portfolio/internal/metrics"
	"github.com/codyseavey/tcg-portfolio/internal/models"
)

// SnapshotService records one portfolio value snapshot per day
type SnapshotService struct {
	db       *gorm.DB
	holdings *HoldingService
	log      zerolog.Logger

	mu            sync.Mutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
	now           func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(db *gorm.DB, holdings *HoldingService, snapshotHour int, checkInterval time.Duration, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		db:            db,
		holdings:      holdings,
		log:           log.With().Str("component", "snapshots").Logger(),
		snapshotHour:  snapshotHour,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	s.log.Info().Int("hour", s.snapshotHour).Msg("Snapshot service started: will record daily portfolio value")

	// Check if we need to take a snapshot for today on startup
	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

// checkAndSnapshot takes today's snapshot once the configured hour has passed
func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	today := snapshotDay(now)

	s.mu.Lock()
	recorded := !s.lastSnapshot.IsZero() && snapshotDay(s.lastSnapshot).Equal(today)
	s.mu.Unlock()
	if recorded {
		return
	}

	last, err := s.lastRecorded(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Snapshot service: failed to check for today's snapshot")
		return
	}
	if last != nil && !last.SnapshotDate.Before(today) {
		return
	}

	if now.Hour() >= s.snapshotHour {
		if _, err := s.TakeSnapshot(ctx); err != nil {
			s.log.Error().Err(err).Msg("Snapshot service: failed to take snapshot")
		}
	}
}

// TakeSnapshot records the current portfolio summary for today, replacing
// an earlier snapshot of the same day.
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (*models.PortfolioValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	portfolio, err := s.holdings.Portfolio(ctx)
	if err != nil {
		metrics.ValueSnapshotsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	now := s.now()
	snapshot := models.PortfolioValueSnapshot{
		OwnerID:          s.holdings.OwnerID(),
		SnapshotDate:     snapshotDay(now),
		Holdings:         len(portfolio.Holdings),
		TotalQuantity:    models.TotalQuantity(portfolio.Holdings),
		TotalInvested:    portfolio.Summary.TotalInvested,
		TotalValue:       portfolio.Summary.TotalValue,
		TotalProfit:      portfolio.Summary.TotalProfit,
		ProfitPercentage: portfolio.Summary.ProfitPercentage,
		CreatedAt:        now,
	}

	db := s.db.WithContext(ctx)
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"holdings", "total_quantity", "total_invested", "total_value", "total_profit", "profit_percentage",
		}),
	}).Create(&snapshot).Error
	if err == nil {
		err = db.Where("owner_id = ? AND snapshot_date = ?", snapshot.OwnerID, snapshot.SnapshotDate).Take(&snapshot).Error
	}
	if err != nil {
		metrics.ValueSnapshotsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to record value snapshot: %w", err)
	}

	s.lastSnapshot = now
	metrics.ValueSnapshotsTotal.WithLabelValues("success").Inc()
	s.log.Info().
		Str("date", snapshot.SnapshotDate.Format("2006-01-02")).
		Float64("total_value", snapshot.TotalValue).
		Int("holdings", snapshot.Holdings).
		Msg("Recorded portfolio value snapshot")

	return &snapshot, nil
}

// GetHistory retrieves value snapshots for a given period
func (s *SnapshotService) GetHistory(ctx context.Context, period string) ([]models.PortfolioValueSnapshot, error) {
	now := s.now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
		startDate = time.Time{} // No filter
	default:
		startDate = now.AddDate(0, -1, 0) // Default to 1 month
	}

	snapshots := make([]models.PortfolioValueSnapshot, 0)
	query := s.db.WithContext(ctx).
		Where("owner_id = ?", s.holdings.OwnerID()).
		Order("snapshot_date ASC")
	if !startDate.IsZero() {
		query = query.Where("snapshot_date >= ?", snapshotDay(startDate))
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to load value history: %w", err)
	}
	return snapshots, nil
}

// lastRecorded returns the most recent stored snapshot, or nil if none exist
func (s *SnapshotService) lastRecorded(ctx context.Context) (*models.PortfolioValueSnapshot, error) {
	var snapshot models.PortfolioValueSnapshot
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", s.holdings.OwnerID()).
		Order("snapshot_date DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last value snapshot: %w", err)
	}
	return &snapshot, nil
}

// snapshotDay maps a local time to its calendar day at UTC midnight so the
// (owner, day) key compares equal regardless of the time zone it came from.
func snapshotDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
