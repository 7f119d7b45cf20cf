package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// investmentService handles investment business logic.
type investmentService struct {
	db *gorm.DB
}

// NewInvestmentService creates a new InvestmentServicer.
func NewInvestmentService(db *gorm.DB) InvestmentServicer {
	return &investmentService{db: db}
}

// CreateInvestment records a new investment for a user.
func (s *investmentService) CreateInvestment(userID uint, amount decimal.Decimal, assetType, institution string, date time.Time) (*models.Investment, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if assetType == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "asset type is required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	investment := &models.Investment{
		UserID:      userID,
		Amount:      amount,
		AssetType:   assetType,
		Institution: institution,
		Date:        date,
	}

	if err := s.db.Create(investment).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return investment, nil
}

// GetUserInvestments retrieves a paginated list of the user's investments.
func (s *investmentService) GetUserInvestments(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error) {
	page.Defaults()

	base := s.db.Model(&models.Investment{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var investments []models.Investment
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&investments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(investments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetInvestmentByID retrieves an investment by ID for a specific user
func (s *investmentService) GetInvestmentByID(userID, investmentID uint) (*models.Investment, error) {
	var investment models.Investment
	if err := s.db.Where("id = ? AND user_id = ?", investmentID, userID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investment, nil
}

// UpdateInvestment applies a partial update to an investment.
func (s *investmentService) UpdateInvestment(userID, investmentID uint, amount *decimal.Decimal, assetType, institution string, date *time.Time) (*models.Investment, error) {
	investment, err := s.GetInvestmentByID(userID, investmentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if amount != nil {
		if amount.IsNegative() || amount.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		updates["amount"] = *amount
	}
	if assetType != "" {
		updates["asset_type"] = assetType
	}
	if institution != "" {
		updates["institution"] = institution
	}
	if date != nil {
		updates["date"] = *date
	}

	if len(updates) == 0 {
		return investment, nil
	}

	if err := s.db.Model(investment).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetInvestmentByID(userID, investmentID)
}

// DeleteInvestment soft-deletes an investment.
func (s *investmentService) DeleteInvestment(userID, investmentID uint) error {
	investment, err := s.GetInvestmentByID(userID, investmentID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(investment).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
