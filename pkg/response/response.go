package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Reason distinguishes guard failures so callers can route the user:
	// "not_provisioned", "admin_session_expired", "illegal_transition".
	Reason string `json:"reason,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// UnauthorizedReason sends 401 with a machine-readable reason
// (e.g. "admin_session_expired").
func UnauthorizedReason(c *gin.Context, err, reason string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Reason: reason})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409 with a machine-readable reason.
func Conflict(c *gin.Context, err, reason string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err, Reason: reason})
}

// GuardFailed sends 422 with a machine-readable reason (e.g. "not_provisioned").
func GuardFailed(c *gin.Context, err, reason string) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err, Reason: reason})
}

// ServiceUnavailable sends 503. Used for transient backend failures: retryable by the caller.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
