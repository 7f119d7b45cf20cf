package models

import "github.com/shopspring/decimal"

// Budget represents a monthly spending limit for a category.
// Month uses the YYYY-MM format.
type Budget struct {
	Base
	UserID   uint            `gorm:"not null;index" json:"user_id"`
	Category string          `gorm:"not null" json:"category"`
	Amount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Month    string          `gorm:"not null;size:7" json:"month"`
}
