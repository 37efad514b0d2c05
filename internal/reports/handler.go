package reports

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler serves archived reports.
type Handler struct {
	archiver *Archiver
}

// NewHandler creates a reports handler.
func NewHandler(a *Archiver) *Handler {
	return &Handler{archiver: a}
}

// Link handles GET /winners/reports/:year/:month.
func (h *Handler) Link(c *gin.Context) {
	year, month, ok := period(c)
	if !ok {
		return
	}
	out, err := h.archiver.Link(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Archive handles POST /winners/reports/:year/:month.
func (h *Handler) Archive(c *gin.Context) {
	year, month, ok := period(c)
	if !ok {
		return
	}
	out, err := h.archiver.Archive(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, out)
}

func period(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		response.BadRequest(c, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		response.BadRequest(c, "month must be between 1 and 12")
		return 0, 0, false
	}
	return year, month, true
}
