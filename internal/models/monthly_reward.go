package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyReward is the per-member, per-month purchase and cash reward state.
type MonthlyReward struct {
	BaseModel
	MemberID           uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_monthly_rewards_period" json:"member_id"`
	Member             *Member         `json:"member,omitempty"`
	Year               int             `gorm:"uniqueIndex:idx_monthly_rewards_period" json:"year"`
	Month              int             `gorm:"uniqueIndex:idx_monthly_rewards_period" json:"month"`
	TotalPurchaseValue decimal.Decimal `gorm:"type:numeric(18,2);default:0" json:"total_purchase_value"`
	CashReward         decimal.Decimal `gorm:"type:numeric(18,2);default:0" json:"cash_reward"`
	RewardCalculated   bool            `json:"reward_calculated"`
	RewardPaid         bool            `json:"reward_paid"`
	RewardPaidAt       *time.Time      `json:"reward_paid_at"`
}
