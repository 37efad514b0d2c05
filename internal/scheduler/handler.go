package scheduler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler exposes manual job triggers to operators.
type Handler struct {
	sched *Scheduler
}

// NewHandler creates a scheduler handler.
func NewHandler(s *Scheduler) *Handler {
	return &Handler{sched: s}
}

// Run handles POST /admin/jobs/:name/run.
func (h *Handler) Run(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.RunNow(c.Request.Context(), name); err != nil {
		if errors.Is(err, ErrUnknownJob) {
			response.NotFound(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"job": name, "status": "completed"})
}

// List handles GET /admin/jobs.
func (h *Handler) List(c *gin.Context) {
	response.OK(c, gin.H{"jobs": h.sched.Jobs()})
}
