package trends

import (
	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/shared/server/respond"
)

// Handler exposes the stored overall analysis.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches trend routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/trends", h.get)
}

func (h *Handler) get(c *gin.Context) {
	oa, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, oa)
}
