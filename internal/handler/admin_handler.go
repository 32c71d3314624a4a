package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/middleware"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type tutorVerifier interface {
	ListPending(ctx context.Context, page, pageSize int) ([]models.Tutor, *models.Pagination, error)
	VerificationStats(ctx context.Context) (*models.VerificationStats, error)
	Verify(ctx context.Context, actor models.Actor, tutorID string, req models.VerifyTutorRequest) (*models.Tutor, error)
}

type statsReporter interface {
	SessionStats(ctx context.Context) (*models.SessionStats, bool, error)
	PlatformStats(ctx context.Context) (*models.PlatformStats, bool, error)
}

type userAdmin interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	SetActive(ctx context.Context, actor models.Actor, id string, req models.UpdateUserStatusRequest) (*models.User, error)
}

// AdminHandler groups the admin-only endpoints.
type AdminHandler struct {
	tutors  tutorVerifier
	reports statsReporter
	users   userAdmin
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(tutors tutorVerifier, reports statsReporter, users userAdmin) *AdminHandler {
	return &AdminHandler{tutors: tutors, reports: reports, users: users}
}

// PendingTutors godoc
// @Summary Tutors awaiting verification
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/tutors/pending [get]
func (h *AdminHandler) PendingTutors(c *gin.Context) {
	page, size := pageParams(c)
	tutors, pagination, err := h.tutors.ListPending(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// VerificationStats godoc
// @Summary Tutor counts per verification status
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/tutors/stats [get]
func (h *AdminHandler) VerificationStats(c *gin.Context) {
	stats, err := h.tutors.VerificationStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// VerifyTutor godoc
// @Summary Verify or reject a tutor
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body models.VerifyTutorRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/tutors/{id}/verify [patch]
func (h *AdminHandler) VerifyTutor(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.VerifyTutorRequest
	if !bindJSON(c, &req) {
		return
	}
	tutor, err := h.tutors.Verify(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// SessionStats godoc
// @Summary Session statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats/sessions [get]
func (h *AdminHandler) SessionStats(c *gin.Context) {
	stats, hit, err := h.reports.SessionStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, stats)
}

// PlatformStats godoc
// @Summary Platform statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats/platform [get]
func (h *AdminHandler) PlatformStats(c *gin.Context) {
	stats, hit, err := h.reports.PlatformStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, stats)
}

// ListUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageParams(c)
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	filter.Search = c.Query("search")

	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// UpdateUserStatus godoc
// @Summary Activate or deactivate a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.UpdateUserStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id}/status [patch]
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetActive(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}
