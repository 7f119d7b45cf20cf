package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fintrack/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTransaction creates a one-off transaction of the given type and amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:   userID,
		Type:     txType,
		Category: fmt.Sprintf("Test Category %d", nextID()),
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRecurringTemplate creates a recurring transaction anchored at the
// given date. Category and description are unique so templates do not collide
// in duplicate detection unless a test arranges it.
func CreateTestRecurringTemplate(t *testing.T, db *gorm.DB, userID uint, txType models.TransactionType, amount string, date time.Time, frequency models.Frequency) *models.Transaction {
	t.Helper()

	n := nextID()
	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Vendor:      fmt.Sprintf("Test Vendor %d", n),
		Category:    fmt.Sprintf("Test Category %d", n),
		Description: fmt.Sprintf("Test recurring %d", n),
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
		Recurring:   true,
		Frequency:   frequency,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test recurring template: %v", err)
	}
	return tx
}

// CreateTestBudget creates a budget for the given category and month.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID uint, category, amount, month string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:   userID,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Month:    month,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a savings goal with the given target amount.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID uint, target string) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount: decimal.RequireFromString(target),
		CurrentSaved: decimal.Zero,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// CreateTestInvestment creates an investment record for the user.
func CreateTestInvestment(t *testing.T, db *gorm.DB, userID uint, amount string) *models.Investment {
	t.Helper()

	inv := &models.Investment{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		AssetType:   "stock",
		Institution: fmt.Sprintf("Test Broker %d", nextID()),
		Date:        time.Now(),
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test investment: %v", err)
	}
	return inv
}
