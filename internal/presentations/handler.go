package presentations

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// CurrentWeekReader serves the current-week calendar.
type CurrentWeekReader interface {
	CurrentWeek(ctx context.Context) *models.WeekPresentations
}

// AssignmentGetter loads assignments.
type AssignmentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
}

// CreateRequest is the body for POST /presentations.
type CreateRequest struct {
	AssignmentID uuid.UUID `json:"assignment_id" binding:"required"`
}

// Handler handles presentation HTTP endpoints.
type Handler struct {
	svc         *Service
	week        CurrentWeekReader
	assignments AssignmentGetter
}

// NewHandler creates a presentations handler.
func NewHandler(svc *Service, week CurrentWeekReader, assignments AssignmentGetter) *Handler {
	return &Handler{svc: svc, week: week, assignments: assignments}
}

// CurrentWeek handles GET /presentations/current-week.
func (h *Handler) CurrentWeek(c *gin.Context) {
	response.OK(c, h.week.CurrentWeek(c.Request.Context()))
}

// Upcoming handles GET /presentations/upcoming?limit=N.
func (h *Handler) Upcoming(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		response.BadRequest(c, "limit must be between 1 and 500")
		return
	}
	list, err := h.svc.Upcoming(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /presentations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid presentation id")
		return
	}
	p, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Create handles POST /presentations (admin). It schedules a presentation for
// a primary assignment the asynchronous path missed.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a, err := h.assignments.GetByID(c.Request.Context(), req.AssignmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.svc.CreatePresentation(c.Request.Context(), a)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}
