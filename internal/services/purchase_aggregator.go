package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/rewards"
)

// PurchaseAggregator sums the purchase value a member accrued in a time window.
type PurchaseAggregator interface {
	SumPurchaseValue(ctx context.Context, memberID uuid.UUID, start, endInclusive time.Time) (decimal.Decimal, error)
}

// GormPurchaseAggregator sums scan amounts stored in the scans table.
type GormPurchaseAggregator struct {
	db *gorm.DB
}

// NewGormPurchaseAggregator constructs GormPurchaseAggregator.
func NewGormPurchaseAggregator(db *gorm.DB) *GormPurchaseAggregator {
	return &GormPurchaseAggregator{db: db}
}

// SumPurchaseValue returns the total scan amount with start <= scanned_at <= endInclusive.
func (a *GormPurchaseAggregator) SumPurchaseValue(ctx context.Context, memberID uuid.UUID, start, endInclusive time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := a.db.WithContext(ctx).Model(&models.Scan{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ? AND scanned_at >= ? AND scanned_at <= ?", memberID, start, endInclusive).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum purchase value: %w", err)
	}
	return models.Money(total), nil
}

// ValidatePeriod checks that year and month name a real calendar month.
func ValidatePeriod(year, month int) error {
	if year < 2000 || year > 9999 {
		return fmt.Errorf("%w: year %d out of range", rewards.ErrInvalidInput, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", rewards.ErrInvalidInput, month)
	}
	return nil
}

// PeriodBounds returns the first and last instant of the calendar month in loc.
// Both bounds are inclusive.
func PeriodBounds(year, month int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Microsecond)
	return start, end
}
