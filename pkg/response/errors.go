package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tribu-research/challenge-backend/internal/apperr"
)

// RetryAfter is advertised on 503 responses.
const RetryAfter = 5

var kinds = []struct {
	err    error
	status int
	code   string
}{
	{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperr.ErrConflict, http.StatusConflict, "conflict"},
	{apperr.ErrInvalidState, http.StatusUnprocessableEntity, "invalid_state"},
	{apperr.ErrCapacityExceeded, http.StatusTooManyRequests, "capacity_exceeded"},
	{apperr.ErrTransient, http.StatusServiceUnavailable, "transient"},
}

func classify(err error) (int, string) {
	kind := apperr.Kind(err)
	for _, k := range kinds {
		if k.err == kind {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, ""
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	status, _ := classify(err)
	return status
}

// Error writes err with the status of its kind. Unclassified errors are
// reported as a generic failure without leaking their text.
func Error(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "internal error"
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", strconv.Itoa(RetryAfter))
	}
	_ = c.Error(err)
	fail(c, status, msg, code)
}
