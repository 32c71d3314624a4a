package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type reviewService interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateReviewRequest) (*models.Review, error)
	Pending(ctx context.Context, actor models.Actor) ([]models.Session, error)
	ListByTutor(ctx context.Context, tutorID string) ([]models.Review, error)
}

// ReviewHandler exposes session reviews.
type ReviewHandler struct {
	reviews reviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(reviews reviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Review a completed session
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body models.CreateReviewRequest true "Review"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Pending godoc
// @Summary Completed sessions awaiting a review
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reviews/pending [get]
func (h *ReviewHandler) Pending(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	sessions, err := h.reviews.Pending(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions)
}

// ListByTutor godoc
// @Summary Reviews of a tutor
// @Tags Reviews
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/reviews [get]
func (h *ReviewHandler) ListByTutor(c *gin.Context) {
	reviews, err := h.reviews.ListByTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reviews)
}
