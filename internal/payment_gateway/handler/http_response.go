package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the flat error body every endpoint returns
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondError sends a JSON error with the given status
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// RespondValidationError sends a 400 naming the request field at fault
func RespondValidationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Field: field})
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondError(c, http.StatusNotFound, message)
}

// RespondInternalError sends a 500, with details when they are safe to expose
func RespondInternalError(c *gin.Context, message, details string) {
	if message == "" {
		message = "Internal server error"
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message, Details: details})
}

// RespondMethodNotAllowed is used as the engine's NoMethod handler
func RespondMethodNotAllowed(c *gin.Context) {
	RespondError(c, http.StatusMethodNotAllowed, "Method not allowed")
}
