package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type earningsReporter interface {
	Summary(ctx context.Context, actor models.Actor) (*models.EarningsSummary, bool, error)
}

// EarningsHandler serves the tutor earnings summary.
type EarningsHandler struct {
	earnings earningsReporter
}

// NewEarningsHandler constructs an EarningsHandler.
func NewEarningsHandler(earnings earningsReporter) *EarningsHandler {
	return &EarningsHandler{earnings: earnings}
}

// Summary godoc
// @Summary Earnings summary of the current tutor
// @Tags Earnings
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /earnings [get]
func (h *EarningsHandler) Summary(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	summary, hit, err := h.earnings.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, summary)
}
