package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	recurrenceService  services.RecurrenceServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, recurrenceService services.RecurrenceServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		recurrenceService:  recurrenceService,
		auditService:       auditService,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Vendor      string                 `json:"vendor" binding:"max=255"`
	Category    string                 `json:"category" binding:"max=255"`
	Description string                 `json:"description" binding:"max=500"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Date        *string                `json:"date"`
	Recurring   bool                   `json:"recurring"`
	Frequency   models.Frequency       `json:"frequency" binding:"omitempty,frequency"`
}

// TransactionResponse represents a transaction in the response
type TransactionResponse struct {
	ID              uint                   `json:"id"`
	UserID          uint                   `json:"user_id"`
	Type            models.TransactionType `json:"type"`
	Vendor          string                 `json:"vendor"`
	Category        string                 `json:"category"`
	Description     string                 `json:"description"`
	Amount          decimal.Decimal        `json:"amount"`
	Date            time.Time              `json:"date"`
	Recurring       bool                   `json:"recurring"`
	Frequency       models.Frequency       `json:"frequency,omitempty"`
	RecurringPaused bool                   `json:"recurring_paused"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Create a new transaction (income or expense), optionally marked as a recurring template
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} TransactionResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactionDate := time.Now()
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		transactionDate = parsed
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		req.Type,
		req.Vendor,
		req.Category,
		req.Description,
		req.Amount,
		transactionDate,
		req.Recurring,
		req.Frequency,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount.String(), "recurring": req.Recurring})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions handles the retrieval of all transactions for the authenticated user
// @Summary     Get user transactions
// @Description Get a paginated list of all transactions for the authenticated user with optional filters
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       month     query string false "Filter by month (YYYY-MM)"
// @Param       type      query string false "Filter by transaction type (income, expense)"
// @Param       vendor    query string false "Filter by vendor"
// @Param       category  query string false "Filter by category"
// @Param       recurring query bool   false "Filter by recurring flag"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	filter.Month = c.Query("month")
	filter.Vendor = c.Query("vendor")
	filter.Category = c.Query("category")

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income or expense")
		}
		filter.Type = &txType
	}

	if v := c.Query("recurring"); v != "" {
		switch v {
		case "true":
			b := true
			filter.Recurring = &b
		case "false":
			b := false
			filter.Recurring = &b
		default:
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid recurring, must be true or false")
		}
	}

	return filter, nil
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} TransactionResponse "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
type UpdateTransactionRequest struct {
	Type            *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Vendor          *string                 `json:"vendor" binding:"omitempty,max=255"`
	Category        *string                 `json:"category" binding:"omitempty,max=255"`
	Description     *string                 `json:"description" binding:"omitempty,max=500"`
	Amount          *decimal.Decimal        `json:"amount"`
	Date            *string                 `json:"date"`
	Recurring       *bool                   `json:"recurring"`
	Frequency       *models.Frequency       `json:"frequency" binding:"omitempty,frequency"`
	RecurringPaused *bool                   `json:"recurring_paused"`
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Update an existing transaction. Recurring series can be paused or resumed through recurring_paused.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                      true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} TransactionResponse "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updateFields := services.TransactionUpdateFields{
		Type:            req.Type,
		Vendor:          req.Vendor,
		Category:        req.Category,
		Description:     req.Description,
		Amount:          req.Amount,
		Recurring:       req.Recurring,
		Frequency:       req.Frequency,
		RecurringPaused: req.RecurringPaused,
	}

	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		updateFields.Date = &parsed
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, txID, updateFields)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", txID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID. Deleting a recurring template ends its series.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// ReconcileRequest represents the optional request payload for reconciliation.
type ReconcileRequest struct {
	AsOf *string `json:"as_of"`
}

// ReconcileResponse reports the outcome of a reconciliation run.
type ReconcileResponse struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
}

// ReconcileRecurring materializes missed occurrences of the user's recurring transactions
// @Summary     Reconcile recurring transactions
// @Description Generate all occurrences of the user's recurring transactions due up to now (or the provided as_of instant), exactly once each
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReconcileRequest false "Optional reconciliation instant"
// @Success     200 {object} ReconcileResponse "Reconciliation result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /transactions/recurring/reconcile [post]
func (h *TransactionHandler) ReconcileRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	asOf, err := parseReconcileAsOf(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurrenceService.Reconcile(userID, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if result.Generated > 0 {
		h.auditService.Log(userID, "RECONCILE_RECURRING", "transaction", 0, c.ClientIP(),
			map[string]interface{}{"generated": result.Generated, "skipped": result.Skipped})
	}

	c.JSON(http.StatusOK, result)
}

// ReconcileUserRecurring reconciles a specific user's recurring transactions.
// It backs the internal endpoint used by external schedulers.
// @Summary     Reconcile a user's recurring transactions (internal)
// @Description Generate missed recurring occurrences for the given user. Requires the internal API key.
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       id      path int              true  "User ID"
// @Param       request body ReconcileRequest false "Optional reconciliation instant"
// @Success     200 {object} ReconcileResponse "Reconciliation result"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Store unavailable"
// @Router      /internal/users/{id}/recurring/reconcile [post]
func (h *TransactionHandler) ReconcileUserRecurring(c *gin.Context) {
	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	asOf, err := parseReconcileAsOf(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurrenceService.Reconcile(userID, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseReconcileAsOf reads the optional as_of instant from the request body.
// An absent body or field means "now" (signalled by the zero time).
func parseReconcileAsOf(c *gin.Context) (time.Time, error) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return time.Time{}, nil
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	if req.AsOf == nil || *req.AsOf == "" {
		return time.Time{}, nil
	}

	parsed, err := parseFlexibleTime(*req.AsOf)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return parsed, nil
}
