package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scan is a purchase recorded when a member scans a product QR code.
// Monthly purchase totals are sums of Scan.Amount.
type Scan struct {
	BaseModel
	MemberID  uuid.UUID       `gorm:"type:uuid;index:idx_scans_member_time" json:"member_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;index" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	QRCode    string          `json:"qr_code"`
	Amount    decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	Points    int64           `json:"points"`
	ScannedAt time.Time       `gorm:"index:idx_scans_member_time" json:"scanned_at"`
}
