package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

type tutorDirectory interface {
	Directory(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Tutor, error)
	Availability(ctx context.Context, id string) (models.Availability, error)
	BookedSlots(ctx context.Context, id string) ([]models.BookedSlot, error)
	Profile(ctx context.Context, actor models.Actor) (*models.Tutor, error)
	UpsertProfile(ctx context.Context, actor models.Actor, req models.UpsertTutorProfileRequest) (*models.Tutor, error)
	UpdateAvailability(ctx context.Context, actor models.Actor, req models.UpdateAvailabilityRequest) (models.Availability, error)
}

type slotFinder interface {
	AvailableSlots(ctx context.Context, tutorID, rawDate string) ([]models.TimeOfDay, error)
}

// TutorHandler serves the tutor directory and the tutor's own profile.
type TutorHandler struct {
	tutors  tutorDirectory
	booking slotFinder
}

// NewTutorHandler constructs a TutorHandler.
func NewTutorHandler(tutors tutorDirectory, booking slotFinder) *TutorHandler {
	return &TutorHandler{tutors: tutors, booking: booking}
}

// Directory godoc
// @Summary List verified tutors
// @Tags Tutors
// @Produce json
// @Param subject query string false "Subject name"
// @Param city query string false "City"
// @Param max_rate query number false "Maximum hourly rate"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *TutorHandler) Directory(c *gin.Context) {
	filter := models.TutorFilter{
		Subject: c.Query("subject"),
		City:    c.Query("city"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := c.Query("max_rate"); raw != "" {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxRate = &rate
		}
	}

	tutors, pagination, err := h.tutors.Directory(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutors, pagination)
}

// Get godoc
// @Summary Get tutor
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutors/{id} [get]
func (h *TutorHandler) Get(c *gin.Context) {
	tutor, err := h.tutors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// Availability godoc
// @Summary Tutor weekly availability
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *TutorHandler) Availability(c *gin.Context) {
	availability, err := h.tutors.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, availability)
}

// BookedSlots godoc
// @Summary Upcoming booked sessions of a tutor
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/booked [get]
func (h *TutorHandler) BookedSlots(c *gin.Context) {
	slots, err := h.tutors.BookedSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Slots godoc
// @Summary Bookable slot start times for a date
// @Tags Tutors
// @Produce json
// @Param id path string true "Tutor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/slots [get]
func (h *TutorHandler) Slots(c *gin.Context) {
	slots, err := h.booking.AvailableSlots(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Profile godoc
// @Summary Current tutor profile
// @Tags Tutor Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tutor/profile [get]
func (h *TutorHandler) Profile(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	tutor, err := h.tutors.Profile(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// UpsertProfile godoc
// @Summary Create or update the current tutor profile
// @Tags Tutor Profile
// @Accept json
// @Produce json
// @Param payload body models.UpsertTutorProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutor/profile [put]
func (h *TutorHandler) UpsertProfile(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.UpsertTutorProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	tutor, err := h.tutors.UpsertProfile(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tutor)
}

// UpdateAvailability godoc
// @Summary Replace the current tutor's weekly availability
// @Tags Tutor Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateAvailabilityRequest true "Availability"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutor/availability [put]
func (h *TutorHandler) UpdateAvailability(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req models.UpdateAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	availability, err := h.tutors.UpdateAvailability(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, availability)
}
