package questionnaire

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches questionnaire routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questionnaire", h.get)
	rg.PUT("/questionnaire/answer", h.answer)
	rg.POST("/questionnaire/advance", h.advance)
	rg.POST("/questionnaire/retreat", h.retreat)
}

func (h *Handler) get(c *gin.Context) {
	v, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, v)
}

func (h *Handler) answer(c *gin.Context) {
	var in AnswerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	v, err := h.Svc.Answer(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, v)
}

func (h *Handler) advance(c *gin.Context) {
	v, err := h.Svc.Advance(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, v)
}

func (h *Handler) retreat(c *gin.Context) {
	v, err := h.Svc.Retreat(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, v)
}
