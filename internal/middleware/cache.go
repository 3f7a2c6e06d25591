package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks successful GET responses as cacheable by the browser for maxAge.
// Used on the theme directory, which only changes when the remote store is reseeded.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	seconds := int(maxAge / time.Second)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && seconds > 0 {
			c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
		}
		c.Next()
	}
}

// NoStore disables caching for responses that carry live session state.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
