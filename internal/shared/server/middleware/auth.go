package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/auth"
	"budget-backend/internal/shared/server/respond"
)

const userIDKey = "userId"

// IdentityConfig controls how callers are identified.
type IdentityConfig struct {
	// Secret verifies HS256 bearer tokens issued by the login service.
	Secret []byte
	// AllowHeader accepts X-User-Id without a token. Dev only.
	AllowHeader bool
	// Public paths skip identification.
	Public []string
}

// Identity resolves the caller's user id from a bearer token or, in dev, the X-User-Id header.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	public := make(map[string]struct{}, len(cfg.Public))
	for _, p := range cfg.Public {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			sub, err := auth.Verify(cfg.Secret, strings.TrimSpace(token))
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			c.Set(userIDKey, sub)
			c.Next()
			return
		}

		if cfg.AllowHeader {
			if id := strings.TrimSpace(c.GetHeader("X-User-Id")); id != "" {
				c.Set(userIDKey, id)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
