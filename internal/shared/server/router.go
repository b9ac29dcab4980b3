package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/analysis"
	"budget-backend/internal/questionnaire"
	"budget-backend/internal/services/health"
	"budget-backend/internal/shared/config"
	"budget-backend/internal/shared/metrics"
	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/shared/server/respond"
	"budget-backend/internal/statements"
	"budget-backend/internal/trends"
)

const apiPrefix = "/api/v1"

// RouterDeps holds the handlers mounted on the router.
type RouterDeps struct {
	Config               config.Config
	Health               *health.Service
	StatementsHandler    *statements.Handler
	TrendsHandler        *trends.Handler
	QuestionnaireHandler *questionnaire.Handler
	AnalysisHandler      *analysis.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "dev" || cfg.Env == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Identity(middleware.IdentityConfig{
			Secret:      []byte(cfg.JWTSecret),
			AllowHeader: cfg.Env == "dev" || cfg.Env == "local",
			Public:      []string{apiPrefix + "/health", apiPrefix + "/metrics"},
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.GenerationGroup: {
					Rate:  cfg.GenerationPerMinute / float64(time.Minute/time.Second),
					Burst: cfg.GenerationBurst,
				},
			},
			GroupFor: middleware.GenerationRoutes(
				"POST "+apiPrefix+"/analysis",
				"POST "+apiPrefix+"/statements/upload",
			),
		}),
	)

	api := r.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	api.GET("/metrics", metrics.Handler())

	if deps.StatementsHandler != nil {
		deps.StatementsHandler.RegisterRoutes(api)
	}
	if deps.TrendsHandler != nil {
		deps.TrendsHandler.RegisterRoutes(api)
	}
	if deps.QuestionnaireHandler != nil {
		deps.QuestionnaireHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
