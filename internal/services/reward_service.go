package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/rewards"
)

// RewardNotifier is told about rewards once they are paid out.
type RewardNotifier interface {
	NotifyRewardPaid(RewardPaidNotification) error
}

// RewardService calculates, caches and pays monthly cash rewards.
type RewardService struct {
	db        *gorm.DB
	schedule  *rewards.Schedule
	purchases PurchaseAggregator
	loc       *time.Location
	notifier  RewardNotifier
	now       func() time.Time
}

// NewRewardService constructs RewardService. notifier may be nil.
func NewRewardService(db *gorm.DB, schedule *rewards.Schedule, purchases PurchaseAggregator, loc *time.Location, notifier RewardNotifier) *RewardService {
	if loc == nil {
		loc = time.Local
	}
	return &RewardService{
		db:        db,
		schedule:  schedule,
		purchases: purchases,
		loc:       loc,
		notifier:  notifier,
		now:       time.Now,
	}
}

// PeriodReward is the state of one member's month after an operation.
type PeriodReward struct {
	Member    models.Member
	Record    models.MonthlyReward
	Breakdown []rewards.TierAmount
	// AlreadyPaid is set when MarkPaid found the period paid and changed nothing.
	AlreadyPaid bool
}

// BatchFailure describes a member skipped by CalculateAll.
type BatchFailure struct {
	MemberCode string `json:"memberId"`
	Error      string `json:"error"`
}

// BatchSummary reports the outcome of CalculateAll.
type BatchSummary struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	Processed   int             `json:"processed"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	TotalReward decimal.Decimal `json:"totalReward"`
	Failures    []BatchFailure  `json:"failures"`
}

// Schedule exposes the bracket schedule in use.
func (s *RewardService) Schedule() *rewards.Schedule {
	return s.schedule
}

// GetReward refreshes the period's purchase total and returns its state without calculating.
func (s *RewardService) GetReward(ctx context.Context, memberCode string, year, month int) (*PeriodReward, error) {
	member, value, err := s.prepare(ctx, memberCode, year, month)
	if err != nil {
		return nil, err
	}

	var record models.MonthlyReward
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.refreshPeriod(tx, member.ID, year, month, value)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &PeriodReward{Member: *member, Record: record}, nil
}

// CalculateForPeriod re-aggregates the member's purchases for the month and
// computes the cash reward unless the stored result is still current.
func (s *RewardService) CalculateForPeriod(ctx context.Context, memberCode string, year, month int) (*PeriodReward, error) {
	member, value, err := s.prepare(ctx, memberCode, year, month)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{"member": member.MemberCode, "year": year, "month": month})

	var record models.MonthlyReward
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = s.refreshPeriod(tx, member.ID, year, month, value)
		if err != nil {
			return err
		}

		if record.RewardCalculated {
			logger.Debug("reward already calculated")
			return nil
		}

		reward, err := s.schedule.Reward(record.TotalPurchaseValue)
		if err != nil {
			return err
		}

		record.CashReward = reward
		record.RewardCalculated = true
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("save monthly reward: %w", err)
		}

		logger.WithFields(log.Fields{
			"purchases": record.TotalPurchaseValue.StringFixed(2),
			"reward":    reward.StringFixed(2),
		}).Info("reward calculated")
		return nil
	})
	if err != nil {
		return nil, err
	}

	calc, err := s.schedule.Calculate(record.TotalPurchaseValue)
	if err != nil {
		return nil, err
	}

	return &PeriodReward{Member: *member, Record: record, Breakdown: calc.Breakdown}, nil
}

// MarkPaid records the payout of a calculated reward and adds it to the
// member's lifetime total. Paying an already paid period changes nothing.
func (s *RewardService) MarkPaid(ctx context.Context, memberCode string, year, month int) (*PeriodReward, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	member, err := s.findMember(ctx, memberCode)
	if err != nil {
		return nil, err
	}

	result := &PeriodReward{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.MonthlyReward
		if err := tx.Where("member_id = ? AND year = ? AND month = ?", member.ID, year, month).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no reward for %04d-%02d, calculate it first", rewards.ErrNotFound, year, month)
			}
			return err
		}

		if !record.RewardCalculated {
			return fmt.Errorf("%w: reward for %04d-%02d is not calculated", rewards.ErrNotFound, year, month)
		}

		if !record.RewardPaid {
			paidAt := s.now()
			res := tx.Model(&models.MonthlyReward{}).
				Where("id = ? AND reward_paid = ?", record.ID, false).
				Updates(map[string]any{"reward_paid": true, "reward_paid_at": paidAt})
			if res.Error != nil {
				return fmt.Errorf("mark reward paid: %w", res.Error)
			}

			if res.RowsAffected == 1 {
				if err := tx.Model(&models.Member{}).Where("id = ?", member.ID).
					Update("total_cash_rewards", gorm.Expr("total_cash_rewards + ?", record.CashReward)).Error; err != nil {
					return fmt.Errorf("add to lifetime rewards: %w", err)
				}

				entry := models.RewardTransaction{
					MemberID:   member.ID,
					Type:       models.RewardTransactionCashRewardPaid,
					Amount:     record.CashReward,
					Reference:  fmt.Sprintf("%04d-%02d", year, month),
					OccurredAt: paidAt,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return fmt.Errorf("record reward payout: %w", err)
				}
			} else {
				result.AlreadyPaid = true
			}
		} else {
			result.AlreadyPaid = true
		}

		if err := tx.First(&record, "id = ?", record.ID).Error; err != nil {
			return err
		}
		if err := tx.First(member, "id = ?", member.ID).Error; err != nil {
			return err
		}
		result.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Member = *member

	logger := log.WithFields(log.Fields{"member": member.MemberCode, "year": year, "month": month})
	if result.AlreadyPaid {
		logger.Info("reward already paid, ignoring")
		return result, nil
	}

	logger.WithField("reward", result.Record.CashReward.StringFixed(2)).Info("reward paid")
	if s.notifier != nil {
		notification := RewardPaidNotification{
			MemberCode:       member.MemberCode,
			MemberName:       member.DisplayName,
			Year:             year,
			Month:            month,
			Amount:           result.Record.CashReward,
			TotalCashRewards: member.TotalCashRewards,
		}
		go func() {
			if err := s.notifier.NotifyRewardPaid(notification); err != nil {
				logger.WithError(err).Warn("reward paid notification failed")
			}
		}()
	}

	return result, nil
}

// CalculateAll runs CalculateForPeriod for every member. A failing member is
// logged and skipped.
func (s *RewardService) CalculateAll(ctx context.Context, year, month int) (*BatchSummary, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return nil, err
	}

	var members []models.Member
	if err := s.db.WithContext(ctx).Select("id", "member_code").
		Where("role = ?", models.RoleMember).
		Order("created_at asc").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	summary := &BatchSummary{Year: year, Month: month, TotalReward: decimal.Zero, Failures: []BatchFailure{}}
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Processed++
		result, err := s.CalculateForPeriod(ctx, member.MemberCode, year, month)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"member": member.MemberCode,
				"year":   year,
				"month":  month,
			}).Warn("reward calculation failed, skipping member")
			summary.Failed++
			summary.Failures = append(summary.Failures, BatchFailure{MemberCode: member.MemberCode, Error: err.Error()})
			continue
		}

		summary.Succeeded++
		summary.TotalReward = summary.TotalReward.Add(result.Record.CashReward)
	}

	log.WithFields(log.Fields{
		"year":      year,
		"month":     month,
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"total":     summary.TotalReward.StringFixed(2),
	}).Info("reward batch finished")
	return summary, nil
}

// ListPeriod returns the stored records of a month, largest reward first.
func (s *RewardService) ListPeriod(ctx context.Context, year, month, limit, offset int) ([]models.MonthlyReward, int64, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.MonthlyReward{}).Where("year = ? AND month = ?", year, month)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.MonthlyReward
	if err := query.Preload("Member").
		Order("cash_reward desc").
		Limit(limit).Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *RewardService) prepare(ctx context.Context, memberCode string, year, month int) (*models.Member, decimal.Decimal, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return nil, decimal.Zero, err
	}

	member, err := s.findMember(ctx, memberCode)
	if err != nil {
		return nil, decimal.Zero, err
	}

	start, end := PeriodBounds(year, month, s.loc)
	value, err := s.purchases.SumPurchaseValue(ctx, member.ID, start, end)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if value.IsNegative() {
		return nil, decimal.Zero, fmt.Errorf("%w: purchase total %s is negative", rewards.ErrInvalidInput, value)
	}
	return member, value, nil
}

func (s *RewardService) findMember(ctx context.Context, memberCode string) (*models.Member, error) {
	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, "member_code = ?", memberCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: member %s", rewards.ErrNotFound, memberCode)
		}
		return nil, err
	}
	return &member, nil
}

// refreshPeriod stores value as the period's purchase total, creating the
// record on first use. A changed total invalidates the calculated reward.
// Paid periods are left untouched.
func (s *RewardService) refreshPeriod(tx *gorm.DB, memberID uuid.UUID, year, month int, value decimal.Decimal) (models.MonthlyReward, error) {
	var record models.MonthlyReward
	err := tx.Where("member_id = ? AND year = ? AND month = ?", memberID, year, month).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.MonthlyReward{
			MemberID:           memberID,
			Year:               year,
			Month:              month,
			TotalPurchaseValue: value,
			CashReward:         decimal.Zero,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return record, fmt.Errorf("create monthly reward: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return record, nil
		}
		// Another request created it first.
		record = models.MonthlyReward{}
		err = tx.Where("member_id = ? AND year = ? AND month = ?", memberID, year, month).First(&record).Error
	}
	if err != nil {
		return record, err
	}

	if record.RewardPaid {
		if !record.TotalPurchaseValue.Equal(value) {
			log.WithFields(log.Fields{
				"member_id": memberID,
				"year":      year,
				"month":     month,
				"stored":    record.TotalPurchaseValue.StringFixed(2),
				"current":   value.StringFixed(2),
			}).Warn("purchases changed after reward was paid")
		}
		return record, nil
	}

	if record.TotalPurchaseValue.Equal(value) {
		return record, nil
	}

	record.TotalPurchaseValue = value
	record.CashReward = decimal.Zero
	record.RewardCalculated = false
	if err := tx.Save(&record).Error; err != nil {
		return record, fmt.Errorf("update monthly reward: %w", err)
	}
	return record, nil
}
