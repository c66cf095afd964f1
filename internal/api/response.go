package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success sends data as a 200 JSON response. Facade results go through
// here unchanged, including denied ones: a denial is data, not an HTTP
// error.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error sends a JSON error response
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// NotFound sends a 404 JSON error response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}
