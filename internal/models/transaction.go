package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether the transaction type is one of the supported values.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Frequency represents how often a recurring transaction repeats.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Months returns the calendar interval of the frequency in months,
// or 0 for an unrecognized value.
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	}
	return 0
}

// Frequencies lists the supported recurrence frequencies.
func Frequencies() []Frequency {
	return []Frequency{FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}
}

// Transaction represents a financial transaction in the system.
//
// A recurring series is denormalized: every row of the series carries
// Recurring = true and the shared descriptive fields; there is no separate
// series entity. LastGenerated is the date of the most recent occurrence the
// recurrence engine has confirmed to exist for this row's series.
type Transaction struct {
	Base
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Type            TransactionType `gorm:"not null" json:"type"`
	Vendor          string          `json:"vendor"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Date            time.Time       `gorm:"not null;index" json:"date"`
	Recurring       bool            `gorm:"default:false" json:"recurring"`
	Frequency       Frequency       `json:"frequency,omitempty"`
	RecurringPaused bool            `gorm:"default:false" json:"recurring_paused"`
	LastGenerated   *time.Time      `json:"last_generated,omitempty"`
}
