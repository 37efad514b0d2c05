package challenge

import (
	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler serves the challenge status.
type Handler struct {
	repo ports.ChallengeRepository
}

// NewHandler creates a challenge handler.
func NewHandler(repo ports.ChallengeRepository) *Handler {
	return &Handler{repo: repo}
}

// Status handles GET /challenge/status.
func (h *Handler) Status(c *gin.Context) {
	st, err := h.repo.GetStatus(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, st)
}
