package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	StatementIDKey   = "statementId"
	AnalysisStateKey = "analysisState"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		if v := c.GetString(StatementIDKey); v != "" {
			fields["statement_id"] = v
		}
		if v := c.GetString(AnalysisStateKey); v != "" {
			fields["analysis_state"] = v
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		telemetry.Info("request.complete", fields)
	}
}
