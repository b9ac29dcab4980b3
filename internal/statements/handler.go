package statements

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/shared/server/middleware"
	"budget-backend/internal/shared/server/respond"
)

// maxUploadBody bounds the multipart body; the service applies the document limit itself.
const maxUploadBody = 32 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches statement routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/statements", h.list)
	rg.POST("/statements", h.create)
	rg.POST("/statements/upload", h.upload)
	rg.PUT("/statements/:id", h.update)
	rg.DELETE("/statements/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, gin.H{"statements": items})
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	sa, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	c.Set(middleware.StatementIDKey, sa.ID)
	respond.Created(c, sa)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.StatementIDKey, id)
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	sa, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), id, in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "statement analysis not found", nil)
			return
		}
		respond.Failure(c, err, nil)
		return
	}
	respond.OK(c, sa)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.StatementIDKey, id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "statement analysis not found", nil)
			return
		}
		respond.Failure(c, err, nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "unable to read file", nil)
		return
	}

	sa, err := h.Svc.AnalyzeDocument(c.Request.Context(), middleware.UserIDFromContext(c), c.PostForm("statementId"), fileHeader.Filename, data)
	if err != nil {
		respond.Failure(c, err, nil)
		return
	}
	c.Set(middleware.StatementIDKey, sa.ID)
	respond.Created(c, sa)
}
