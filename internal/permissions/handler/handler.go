package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
)

// RegisterGrantRoutes mounts grant management and admin settings under r. Callers are
// expected to have established the actor already.
func RegisterGrantRoutes(r gin.IRouter, svc *permissions.Service) {
	r.GET("/resources/:resourceId/grants", func(c *gin.Context) {
		list, err := svc.ListGrants(c.Request.Context(), middleware.ActorID(c), c.Param("resourceId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.PUT("/resources/:resourceId/grants/:identity", func(c *gin.Context) {
		var req struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
			return
		}
		g, err := svc.Grant(c.Request.Context(), middleware.ActorID(c), c.Param("identity"), c.Param("resourceId"), permissions.Role(req.Role))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, g)
	})

	r.DELETE("/resources/:resourceId/grants/:identity", func(c *gin.Context) {
		if err := svc.Revoke(c.Request.Context(), middleware.ActorID(c), c.Param("identity"), c.Param("resourceId")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.GET("/admin/settings", func(c *gin.Context) {
		s, err := svc.GetSettings(c.Request.Context(), middleware.ActorID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	})

	r.PUT("/admin/settings", func(c *gin.Context) {
		var req struct {
			PlatformAdmins []string `json:"platformAdmins" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
			return
		}
		s, err := svc.UpdateSettings(c.Request.Context(), middleware.ActorID(c), req.PlatformAdmins)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, permissions.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not allowed to manage this resource", "code": "permission_denied"})
	case errors.Is(err, permissions.ErrInvalidGrant):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
	case errors.Is(err, permissions.ErrGrantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "grant not found", "code": "not_found"})
	default:
		logger.Errorf("grant operation failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "permission store unavailable", "code": "store_unavailable"})
	}
}
