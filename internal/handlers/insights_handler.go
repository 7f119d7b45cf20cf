package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/services"
)

// InsightsHandler handles aggregated reporting requests.
type InsightsHandler struct {
	insightsService services.InsightsServicer
}

// NewInsightsHandler creates a new InsightsHandler.
func NewInsightsHandler(insightsService services.InsightsServicer) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService}
}

// GetOverview returns the current month's financial overview
// @Summary     Get monthly overview
// @Description Get the current month's income, expenses, net, and budget statuses
// @Tags        insights
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       month query string false "Month to summarize (YYYY-MM, defaults to the current month)"
// @Success     200 {object} services.Overview "Monthly overview"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /insights/overview [get]
func (h *InsightsHandler) GetOverview(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now()
	if v := c.Query("month"); v != "" {
		parsed, parseErr := time.Parse("2006-01", v)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be in YYYY-MM format"))
			return
		}
		now = parsed
	}

	overview, err := h.insightsService.GetOverview(userID, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetInsights returns spending habit insights
// @Summary     Get spending insights
// @Description Get the top expense category, most frequent vendor, and the savings trend over recent months
// @Tags        insights
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Insights "Spending insights"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /insights [get]
func (h *InsightsHandler) GetInsights(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	insights, err := h.insightsService.GetInsights(userID, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, insights)
}
