package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the runner and controller.
type Handler struct {
	Runner *Runner
}

// NewHandler constructs a Handler.
func NewHandler(runner *Runner) *Handler {
	return &Handler{Runner: runner}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis", h.run)
	rg.GET("/analysis", h.latest)
	rg.GET("/analysis/status", h.status)
}

func (h *Handler) run(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	out, err := h.Runner.Run(c.Request.Context(), userID)
	c.Set(middleware.AnalysisStateKey, string(h.Runner.Ctrl.State(userID)))
	if err != nil {
		var details any
		if out.Stale {
			details = gin.H{"lastResult": out}
		}
		respond.Failure(c, err, details)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) latest(c *gin.Context) {
	out, err := h.Runner.Ctrl.Latest(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "no analysis stored yet", nil)
			return
		}
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	state := h.Runner.Ctrl.State(userID)
	c.Set(middleware.AnalysisStateKey, string(state))
	payload := gin.H{"state": state}

	rec, err := h.Runner.Ctrl.Repo.Get(c.Request.Context(), userID)
	switch {
	case err == nil:
		payload["profileVersion"] = rec.ProfileVersion
		payload["completeness"] = rec.Completeness
		payload["storedAt"] = rec.StoredAt
	case errors.Is(err, ErrNotFound):
	default:
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, payload)
}
