package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal represents a savings goal with a target amount and optional deadline.
type Goal struct {
	Base
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Name          string          `gorm:"not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"target_amount"`
	CurrentSaved  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_saved"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Contributions []Contribution  `gorm:"foreignKey:GoalID" json:"contributions,omitempty"`
}

// Contribution records a single deposit toward a goal.
type Contribution struct {
	Base
	GoalID uint            `gorm:"not null;index" json:"goal_id"`
	Amount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Date   time.Time       `gorm:"not null" json:"date"`
}
