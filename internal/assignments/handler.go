package assignments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/middleware"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// StatusRequest is the body for PATCH /assignments/:id/status.
type StatusRequest struct {
	Status models.AssignmentStatus `json:"status" binding:"required"`
}

// Handler handles assignment HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an assignments handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /assignments. The researcher defaults to the caller.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.ResearcherID == uuid.Nil {
		id, ok := middleware.UserID(c)
		if !ok {
			response.BadRequest(c, "researcher_id is required")
			return
		}
		req.ResearcherID = id
	}
	if req.Role != models.RolePrimary && req.Role != models.RoleContributor {
		response.BadRequest(c, "role must be PRIMARY or CONTRIBUTOR")
		return
	}
	a, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// GetByID handles GET /assignments/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid assignment id")
		return
	}
	a, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// UpdateStatus handles PATCH /assignments/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid assignment id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	a, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}
