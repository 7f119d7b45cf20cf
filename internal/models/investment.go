package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment represents an amount placed into an asset at an institution.
type Investment struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	AssetType   string          `gorm:"not null" json:"asset_type"`
	Institution string          `json:"institution"`
	Date        time.Time       `gorm:"not null" json:"date"`
}
