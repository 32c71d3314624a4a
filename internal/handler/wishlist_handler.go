package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type wishlistService interface {
	List(ctx context.Context, actor models.Actor) ([]models.WishlistEntry, error)
	Add(ctx context.Context, actor models.Actor, req models.AddWishlistRequest) error
	Remove(ctx context.Context, actor models.Actor, tutorID string) error
}

// WishlistHandler manages a student's saved tutors.
type WishlistHandler struct {
	wishlist wishlistService
}

// NewWishlistHandler constructs a WishlistHandler.
func NewWishlistHandler(wishlist wishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// List godoc
// @Summary Saved tutors
// @Tags Wishlist
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /wishlist [get]
func (h *WishlistHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	entries, err := h.wishlist.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Add godoc
// @Summary Save a tutor
// @Tags Wishlist
// @Accept json
// @Param payload body models.AddWishlistRequest true "Tutor"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /wishlist [post]
func (h *WishlistHandler) Add(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.AddWishlistRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.wishlist.Add(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a saved tutor
// @Tags Wishlist
// @Param tutorId path string true "Tutor ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /wishlist/{tutorId} [delete]
func (h *WishlistHandler) Remove(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := h.wishlist.Remove(c.Request.Context(), actor, c.Param("tutorId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
