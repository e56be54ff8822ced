package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RewardTransactionPointsEarned   = "points_earned"
	RewardTransactionCashRewardPaid = "cash_reward_paid"
)

// RewardTransaction is an entry in a member's points and cash reward ledger.
type RewardTransaction struct {
	BaseModel
	MemberID   uuid.UUID       `gorm:"type:uuid;index" json:"member_id"`
	Type       string          `gorm:"index" json:"type"`
	Points     int64           `json:"points"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2);default:0" json:"amount"`
	Reference  string          `json:"reference"`
	OccurredAt time.Time       `json:"occurred_at"`
}
