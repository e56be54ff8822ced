package models

import "github.com/shopspring/decimal"

// Product is an item whose QR code members scan to record a purchase.
type Product struct {
	BaseModel
	Name        string          `json:"name"`
	SKU         string          `gorm:"index" json:"sku"`
	QRCode      string          `gorm:"uniqueIndex" json:"qr_code"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2)" json:"price"`
	Points      int64           `json:"points"`
	ImageURL    string          `json:"image_url"`
	IsActive    bool            `json:"is_active"`
}
