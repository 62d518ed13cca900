package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content/repository"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/workflow"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
)

// RegisterContentRoutes mounts the content and workflow endpoints under r.
func RegisterContentRoutes(r gin.IRouter, svc *workflow.Service) {
	r.GET("/content", func(c *gin.Context) {
		f := repository.Filter{
			UniversityID: c.Query("universityId"),
			ProfileID:    c.Query("profileId"),
			Status:       content.Status(c.Query("status")),
		}
		list, err := svc.List(c.Request.Context(), middleware.ActorID(c), f)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]gin.H, 0, len(list))
		for _, it := range list {
			out = append(out, summary(it))
		}
		c.JSON(http.StatusOK, out)
	})

	r.POST("/content", func(c *gin.Context) {
		var req struct {
			UniversityID string `json:"universityId"`
			ProfileID    string `json:"profileId"`
			Kind         string `json:"kind"`
			Title        string `json:"title"`
			Body         string `json:"body"`
		}
		if !bind(c, &req) {
			return
		}
		it, err := svc.Create(c.Request.Context(), middleware.ActorID(c), workflow.NewItem{
			UniversityID: req.UniversityID,
			ProfileID:    req.ProfileID,
			Kind:         content.Kind(req.Kind),
			Title:        req.Title,
			Body:         req.Body,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, it)
	})

	r.GET("/content/:id", func(c *gin.Context) {
		it, err := svc.Get(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	})

	r.PATCH("/content/:id", func(c *gin.Context) {
		var req struct {
			Title *string `json:"title,omitempty"`
			Body  *string `json:"body,omitempty"`
		}
		if !bind(c, &req) {
			return
		}
		it, err := svc.UpdateContent(c.Request.Context(), middleware.ActorID(c), c.Param("id"), req.Title, req.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	})

	r.GET("/content/:id/history", func(c *gin.Context) {
		h, err := svc.History(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	})

	r.POST("/content/:id/transitions", func(c *gin.Context) {
		var req struct {
			To string `json:"to"`
		}
		if !bind(c, &req) {
			return
		}
		it, err := svc.RequestTransition(c.Request.Context(), c.Param("id"), content.Status(req.To), middleware.ActorID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	})

	r.POST("/content/:id/change-requests", func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		if !bind(c, &req) {
			return
		}
		it, err := svc.RequestChanges(c.Request.Context(), c.Param("id"), req.Reason, middleware.ActorID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	})
}

func summary(it *content.Item) gin.H {
	return gin.H{
		"id":           it.ID,
		"universityId": it.UniversityID,
		"profileId":    it.ProfileID,
		"kind":         it.Kind,
		"title":        it.Title,
		"status":       it.Status,
		"updatedAt":    it.UpdatedAt,
	}
}

func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": workflow.KindValidation})
		return false
	}
	return true
}

var statusByKind = map[workflow.Kind]int{
	workflow.KindValidation:             http.StatusBadRequest,
	workflow.KindInvalidTransition:      http.StatusConflict,
	workflow.KindPermissionDenied:       http.StatusForbidden,
	workflow.KindConcurrentModification: http.StatusConflict,
	workflow.KindStoreUnavailable:       http.StatusServiceUnavailable,
	workflow.KindNotFound:               http.StatusNotFound,
}

func writeError(c *gin.Context, err error) {
	var we *workflow.Error
	if !errors.As(err, &we) {
		logger.Errorf("unexpected content error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if we.Retryable() {
		c.Header("Retry-After", strconv.Itoa(int(workflow.RetryAfter.Seconds())))
	}
	c.JSON(statusByKind[we.Kind], gin.H{"error": we.Message, "code": we.Kind})
}

// Linker hands out time-limited links to published snapshots.
type Linker interface {
	PresignedURL(ctx context.Context, id string, expires time.Duration) (string, error)
}

// RegisterPublishedRoutes exposes links to the published snapshot of approved content.
func RegisterPublishedRoutes(r gin.IRouter, svc *workflow.Service, links Linker, expires time.Duration) {
	r.GET("/content/:id/published", func(c *gin.Context) {
		it, err := svc.Get(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if it.Status != content.StatusApproved {
			c.JSON(http.StatusNotFound, gin.H{"error": "content is not published", "code": workflow.KindNotFound})
			return
		}
		u, err := links.PresignedURL(c.Request.Context(), it.ID, expires)
		if err != nil {
			logger.Errorf("presign %s: %v", it.ID, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "published content is unavailable", "code": workflow.KindStoreUnavailable})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": it.ID, "url": u, "expiresIn": int(expires.Seconds())})
	})
}
