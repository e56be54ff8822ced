package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyScale is the number of fraction digits kept in numeric(18,2) money columns.
const MoneyScale = 2

// BaseModel carries the uuid key and timestamps shared by every table.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id to rows inserted without one.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Money rounds an amount to the precision of the money columns.
func Money(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}
