package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/dateutil"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a new transaction for a user. A transaction
// flagged recurring acts as the anchor of its series and must carry a
// supported frequency.
func (s *transactionService) CreateTransaction(
	userID uint,
	txType models.TransactionType,
	vendor, category, description string,
	amount decimal.Decimal,
	date time.Time,
	recurring bool,
	frequency models.Frequency,
) (*models.Transaction, error) {
	if !txType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if date.IsZero() {
		date = time.Now()
	}
	if recurring && frequency.Months() == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring transactions require a frequency of monthly, quarterly or yearly")
	}
	if !recurring {
		frequency = ""
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Vendor:      vendor,
		Category:    category,
		Description: description,
		Amount:      amount,
		Date:        date,
		Recurring:   recurring,
		Frequency:   frequency,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base, err := applyTransactionFilters(base, filter)
	if err != nil {
		return nil, err
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) (*gorm.DB, error) {
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Month != "" {
		start, err := time.Parse("2006-01", f.Month)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be in YYYY-MM format")
		}
		q = q.Where("date >= ? AND date < ?", start, dateutil.AddMonths(start, 1))
	}
	if f.Vendor != "" {
		q = q.Where("vendor = ?", f.Vendor)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Recurring != nil {
		q = q.Where("recurring = ?", *f.Recurring)
	}
	return q, nil
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a partial update to a transaction. Pausing or
// resuming a recurring series goes through the RecurringPaused field; a paused
// series keeps its checkpoint so resuming continues where it left off.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, fields TransactionUpdateFields) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fields.Type != nil {
		if !fields.Type.Valid() {
			return nil, apperrors.ErrInvalidTransactionType
		}
		updates["type"] = *fields.Type
	}
	if fields.Vendor != nil {
		updates["vendor"] = *fields.Vendor
	}
	if fields.Category != nil {
		updates["category"] = *fields.Category
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Amount != nil {
		if fields.Amount.IsNegative() || fields.Amount.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *fields.Amount
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}
	if fields.Recurring != nil {
		if *fields.Recurring {
			// A recurring row without a supported frequency would never be
			// picked up by the recurrence engine.
			frequency := transaction.Frequency
			if fields.Frequency != nil {
				frequency = *fields.Frequency
			}
			if frequency.Months() == 0 {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring transactions require a frequency of monthly, quarterly or yearly")
			}
		}
		updates["recurring"] = *fields.Recurring
	}
	if fields.Frequency != nil {
		if fields.Frequency.Months() == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "frequency must be monthly, quarterly or yearly")
		}
		updates["frequency"] = *fields.Frequency
	}
	if fields.RecurringPaused != nil {
		updates["recurring_paused"] = *fields.RecurringPaused
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	if err := s.db.Model(transaction).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction soft-deletes a transaction. Deleting a recurring template
// ends its series; already-materialized occurrences are untouched.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
