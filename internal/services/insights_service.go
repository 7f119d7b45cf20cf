package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/dateutil"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// savingsTrendMonths is how many trailing months the savings trend covers,
// including the current one.
const savingsTrendMonths = 3

// insightsService computes aggregated reporting over a user's transactions
// and budgets.
type insightsService struct {
	db *gorm.DB
}

// NewInsightsService creates a new InsightsServicer.
func NewInsightsService(db *gorm.DB) InsightsServicer {
	return &insightsService{db: db}
}

// GetOverview aggregates the month containing now: total income, total
// expenses, the net, and the status of every budget set for that month.
func (s *insightsService) GetOverview(userID uint, now time.Time) (*Overview, error) {
	if now.IsZero() {
		now = time.Now()
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := dateutil.AddMonths(monthStart, 1)
	monthKey := monthStart.Format("2006-01")

	income, err := s.sumForMonth(userID, models.TransactionTypeIncome, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	expense, err := s.sumForMonth(userID, models.TransactionTypeExpense, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND month = ?", userID, monthKey).
		Order("category ASC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent, err := s.categorySpend(userID, b.Category, monthStart, monthEnd)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, BudgetStatus{
			Category: b.Category,
			Limit:    b.Amount,
			Spent:    spent,
			Over:     spent.GreaterThan(b.Amount),
		})
	}

	return &Overview{
		Month:        monthKey,
		IncomeTotal:  income,
		ExpenseTotal: expense,
		Net:          income.Sub(expense),
		Budgets:      statuses,
	}, nil
}

// GetInsights summarizes spending habits: the category with the highest
// expense total in the month containing now, the vendor appearing most often
// overall, and the savings trend over the trailing months.
func (s *insightsService) GetInsights(userID uint, now time.Time) (*Insights, error) {
	if now.IsZero() {
		now = time.Now()
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := dateutil.AddMonths(monthStart, 1)

	var topCategory struct {
		Category string
	}
	err := s.db.Model(&models.Transaction{}).
		Select("category").
		Where("user_id = ? AND type = ? AND category <> ''", userID, models.TransactionTypeExpense).
		Where("date >= ? AND date < ?", monthStart, monthEnd).
		Group("category").
		Order("SUM(amount) DESC").
		Limit(1).
		Scan(&topCategory).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var frequentVendor struct {
		Vendor string
	}
	err = s.db.Model(&models.Transaction{}).
		Select("vendor").
		Where("user_id = ? AND vendor <> ''", userID).
		Group("vendor").
		Order("COUNT(*) DESC").
		Limit(1).
		Scan(&frequentVendor).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	trend := make([]MonthlySavings, 0, savingsTrendMonths)
	for i := savingsTrendMonths - 1; i >= 0; i-- {
		start := dateutil.AddMonths(monthStart, -i)
		end := dateutil.AddMonths(start, 1)

		income, err := s.sumForMonth(userID, models.TransactionTypeIncome, start, end)
		if err != nil {
			return nil, err
		}
		expense, err := s.sumForMonth(userID, models.TransactionTypeExpense, start, end)
		if err != nil {
			return nil, err
		}

		trend = append(trend, MonthlySavings{
			Month:   start.Format("2006-01"),
			Savings: income.Sub(expense),
		})
	}

	return &Insights{
		TopCategory:    topCategory.Category,
		FrequentVendor: frequentVendor.Vendor,
		SavingsTrend:   trend,
	}, nil
}

func (s *insightsService) sumForMonth(userID uint, txType models.TransactionType, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ?", userID, txType).
		Where("date >= ? AND date < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return row.Total, nil
}

func (s *insightsService) categorySpend(userID uint, category string, start, end time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ? AND category = ?", userID, models.TransactionTypeExpense, category).
		Where("date >= ? AND date < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return row.Total, nil
}
