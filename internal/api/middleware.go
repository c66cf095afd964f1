package api

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware adds security headers for JSON API responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Command output and audit rows are sensitive; never cache them
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
		c.Header("Pragma", "no-cache")

		c.Next()
	}
}

// LoopbackOnlyMiddleware rejects requests that did not arrive over the
// loopback interface or the local socket. The TCP listener already binds
// 127.0.0.1, so this only matters if the handler is ever mounted on a
// wider listener.
func LoopbackOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			// Unix socket and named pipe connections carry no host:port.
			c.Next()
			return
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Control API is local-only."})
		c.Abort()
	}
}

// MaxBodySize is the default maximum request body size (1MB)
const MaxBodySize = 1 << 20 // 1MB

// BodySizeLimitMiddleware limits the request body size
func BodySizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("Request body too large. Maximum size is %d bytes.", maxSize),
			})
			c.Abort()
			return
		}

		// Also limit the reader to prevent clients from lying about Content-Length
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
