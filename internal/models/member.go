package models

import "github.com/shopspring/decimal"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Member is a loyalty program participant.
type Member struct {
	BaseModel
	MemberCode         string              `gorm:"uniqueIndex;size:32" json:"member_code"`
	FirstName          string              `json:"first_name"`
	LastName           string              `json:"last_name"`
	Phone              string              `gorm:"uniqueIndex" json:"phone"`
	DisplayName        string              `json:"display_name"`
	PasswordHash       string              `json:"-"`
	Role               string              `gorm:"default:member" json:"role"`
	PointsBalance      int64               `json:"points_balance"`
	TotalCashRewards   decimal.Decimal     `gorm:"type:numeric(18,2);default:0" json:"total_cash_rewards"`
	MonthlyRewards     []MonthlyReward     `json:"monthly_rewards,omitempty"`
	Scans              []Scan              `json:"scans,omitempty"`
	RewardTransactions []RewardTransaction `json:"reward_transactions,omitempty"`
}

// IsAdmin reports whether the member may use the admin API.
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
