package projects

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geovista/projects-backend/internal/assets"
	"github.com/geovista/projects-backend/internal/auth"
	"github.com/geovista/projects-backend/internal/projects/domain"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.POST("/duplicate", h.duplicate)
	rg.PUT("/:id/geometries", h.updateGeometries)
}

func (h *Handler) create(c *gin.Context) {
	var p domain.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	created, err := h.svc.Create(c.Request.Context(), auth.UserEmail(c), &p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": created})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), auth.UserEmail(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), auth.UserEmail(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) update(c *gin.Context) {
	var p domain.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	updated, err := h.svc.Update(c.Request.Context(), auth.UserEmail(c), c.Param("id"), &p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": updated})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserEmail(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type duplicateReq struct {
	ID string `json:"id"`
}

func (h *Handler) duplicate(c *gin.Context) {
	var req duplicateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	dup, err := h.svc.Duplicate(c.Request.Context(), auth.UserEmail(c), req.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": dup})
}

type geometriesReq struct {
	Geometries []domain.Geometry `json:"geometries"`
}

func (h *Handler) updateGeometries(c *gin.Context) {
	var req geometriesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.svc.UpdateGeometries(c.Request.Context(), auth.UserEmail(c), c.Param("id"), req.Geometries)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// writeServiceError maps domain errors onto responses. Forbidden stays a
// bare 403 with no detail, asset problems come back distinct from auth
// failures so the caller knows re-uploading may help, and anything else
// is a retryable 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
	case errors.Is(err, assets.ErrAssetMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "referenced asset does not exist"})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "request failed"})
	}
}
