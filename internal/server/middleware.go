package server

import (
	"net/http"
	"strings"
	"time"

	"tasktracker/internal/config"
	"tasktracker/internal/logging"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// UserIDFromContext returns the owner id resolved by the Auth
// middleware.
func UserIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Auth checks the shared bearer token when one is configured and
// resolves the owning principal from X-User-ID. With a token set the
// header is mandatory; without one a single "default" owner is
// assumed.
func Auth(cfg config.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(cfg.AuthToken)
		enforceExplicitUser := token != ""
		if token != "" {
			h := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(strings.ToLower(h), "bearer ") || strings.TrimSpace(h[7:]) != token {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			if enforceExplicitUser {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "x-user-id required"})
				return
			}
			userID = "default"
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// RequestLogger logs one line per request at debug level.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	scoped := log.With("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		scoped.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
