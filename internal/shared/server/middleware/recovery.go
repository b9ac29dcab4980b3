package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/server/respond"
	"budget-backend/internal/shared/telemetry"
)

// Recovery turns panics into a 500 response and an error log with the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				}
				if userID := UserIDFromContext(c); userID != "" {
					fields["user_id"] = userID
				}
				telemetry.Error("http.panic", fields)
				respond.Error(c, http.StatusInternalServerError, apperr.CodeInternal, "Unexpected server error", nil)
			}
		}()
		c.Next()
	}
}
