package videos

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler handles video HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a videos handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload handles POST /videos.
func (h *Handler) Upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	v, err := h.svc.Upload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, v)
}

// Voting handles GET /videos/voting.
func (h *Handler) Voting(c *gin.Context) {
	list, err := h.svc.InVotingPeriod(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// CurrentMonth handles GET /videos.
func (h *Handler) CurrentMonth(c *gin.Context) {
	list, err := h.svc.CurrentMonth(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /videos/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, v)
}
