package services

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Type      *models.TransactionType
	Month     string // YYYY-MM; empty means no month filter
	Vendor    string
	Category  string
	Recurring *bool
}

// TransactionUpdateFields holds the optional fields for a partial transaction update.
// Nil pointers leave the corresponding column untouched.
type TransactionUpdateFields struct {
	Type            *models.TransactionType
	Vendor          *string
	Category        *string
	Description     *string
	Amount          *decimal.Decimal
	Date            *time.Time
	Recurring       *bool
	Frequency       *models.Frequency
	RecurringPaused *bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID uint, txType models.TransactionType, vendor, category, description string, amount decimal.Decimal, date time.Time, recurring bool, frequency models.Frequency) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
}

// ReconcileResult reports how many occurrences a reconciliation materialized
// and how many candidates were skipped because a matching row already existed.
type ReconcileResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// CheckpointUpdate advances a template's last-generated date.
type CheckpointUpdate struct {
	TemplateID uint
	Checkpoint time.Time
}

// RecurrenceStore is the persistence boundary of the recurrence engine.
// The production implementation is GORM-backed; tests may substitute fakes.
type RecurrenceStore interface {
	// FindRecurringTemplates returns every transaction of the owner flagged
	// recurring with a supported frequency.
	FindRecurringTemplates(userID uint) ([]models.Transaction, error)
	// OccurrenceExists reports whether the owner already has a transaction
	// with the given identity fields dated within [dayStart, dayEnd].
	OccurrenceExists(userID uint, txType models.TransactionType, amount decimal.Decimal, category, description string, dayStart, dayEnd time.Time) (bool, error)
	// InsertOccurrences persists the staged occurrence rows in one batch.
	InsertOccurrences(occurrences []models.Transaction) error
	// UpdateCheckpoints persists the advanced last-generated dates.
	UpdateCheckpoints(updates []CheckpointUpdate) error
}

// RecurrenceServicer defines the contract for the recurrence engine.
type RecurrenceServicer interface {
	// Reconcile materializes all occurrences due for the owner's recurring
	// templates up to asOf, exactly once each. A zero asOf means now.
	Reconcile(userID uint, asOf time.Time) (*ReconcileResult, error)
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID uint, category string, amount decimal.Decimal, month string) (*models.Budget, error)
	GetUserBudgets(userID uint, page pagination.PageRequest, month string) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID uint) (*models.Budget, error)
	UpdateBudget(userID, budgetID uint, category string, amount *decimal.Decimal, month string) (*models.Budget, error)
	DeleteBudget(userID, budgetID uint) error
}

// GoalServicer defines the contract for savings-goal business logic.
type GoalServicer interface {
	CreateGoal(userID uint, name string, targetAmount decimal.Decimal, deadline *time.Time) (*models.Goal, error)
	GetUserGoals(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID uint) (*models.Goal, error)
	UpdateGoal(userID, goalID uint, name string, targetAmount *decimal.Decimal, deadline *time.Time) (*models.Goal, error)
	DeleteGoal(userID, goalID uint) error
	AddContribution(userID, goalID uint, amount decimal.Decimal, date time.Time) (*models.Goal, error)
}

// InvestmentServicer defines the contract for investment business logic.
type InvestmentServicer interface {
	CreateInvestment(userID uint, amount decimal.Decimal, assetType, institution string, date time.Time) (*models.Investment, error)
	GetUserInvestments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error)
	GetInvestmentByID(userID, investmentID uint) (*models.Investment, error)
	UpdateInvestment(userID, investmentID uint, amount *decimal.Decimal, assetType, institution string, date *time.Time) (*models.Investment, error)
	DeleteInvestment(userID, investmentID uint) error
}

// BudgetStatus compares one month's spending in a category against its budget.
type BudgetStatus struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
	Over     bool            `json:"over"`
}

// Overview aggregates the current month's financial position.
type Overview struct {
	Month        string          `json:"month"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	Net          decimal.Decimal `json:"net"`
	Budgets      []BudgetStatus  `json:"budgets"`
}

// MonthlySavings is one point of the savings trend: income minus expenses.
type MonthlySavings struct {
	Month   string          `json:"month"`
	Savings decimal.Decimal `json:"savings"`
}

// Insights summarizes spending habits for the dashboard.
type Insights struct {
	TopCategory    string           `json:"top_category,omitempty"`
	FrequentVendor string           `json:"frequent_vendor,omitempty"`
	SavingsTrend   []MonthlySavings `json:"savings_trend"`
}

// InsightsServicer defines the contract for aggregated reporting.
type InsightsServicer interface {
	GetOverview(userID uint, now time.Time) (*Overview, error)
	GetInsights(userID uint, now time.Time) (*Insights, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
