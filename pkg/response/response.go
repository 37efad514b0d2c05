// Package response writes the JSON envelope every challenge endpoint returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope. Kind is set on failures that
// map to a known error kind so clients can branch without parsing Error.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// OK sends 200 with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// BadRequest rejects malformed input.
func BadRequest(c *gin.Context, msg string) { fail(c, http.StatusBadRequest, msg, "") }

// Unauthorized rejects a missing or invalid token.
func Unauthorized(c *gin.Context, msg string) { fail(c, http.StatusUnauthorized, msg, "") }

// Forbidden rejects a caller whose role may not act.
func Forbidden(c *gin.Context, msg string) { fail(c, http.StatusForbidden, msg, "") }

// NotFound rejects an unknown route parameter.
func NotFound(c *gin.Context, msg string) { fail(c, http.StatusNotFound, msg, "not_found") }

func fail(c *gin.Context, status int, msg, kind string) {
	c.JSON(status, Body{Success: false, Error: msg, Kind: kind})
}
