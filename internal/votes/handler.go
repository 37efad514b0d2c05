package votes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/middleware"
	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler handles vote HTTP endpoints. The voter is the authenticated caller.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a votes handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// VotePresentation handles POST /presentations/:id/votes.
func (h *Handler) VotePresentation(c *gin.Context) {
	id, voter, ok := h.parse(c, "invalid presentation id")
	if !ok {
		return
	}
	res, err := h.ledger.RegisterVote(c.Request.Context(), id, voter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// VoteVideo handles POST /videos/:id/votes.
func (h *Handler) VoteVideo(c *gin.Context) {
	id, voter, ok := h.parse(c, "invalid video id")
	if !ok {
		return
	}
	video, err := h.ledger.RegisterVideoVote(c.Request.Context(), id, voter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, video)
}

// Count handles GET /presentations/:id/votes and GET /videos/:id/votes.
func (h *Handler) Count(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	n, err := h.ledger.Count(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "votes": n})
}

func (h *Handler) parse(c *gin.Context, msg string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, msg)
		return uuid.Nil, uuid.Nil, false
	}
	voter, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return uuid.Nil, uuid.Nil, false
	}
	return id, voter, true
}
