package winners

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/pkg/response"
)

// Handler serves winner reports.
type Handler struct {
	engine *Engine
}

// NewHandler creates a winners handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// List handles GET /winners?month=M&year=Y. Both default to the current month.
func (h *Handler) List(c *gin.Context) {
	month, err := optionalInt(c.Query("month"))
	if err != nil || month < 0 || month > 12 {
		response.BadRequest(c, "month must be between 1 and 12")
		return
	}
	year, err := optionalInt(c.Query("year"))
	if err != nil || year < 0 {
		response.BadRequest(c, "invalid year")
		return
	}
	report, err := h.engine.GetWinners(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
