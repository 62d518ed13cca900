package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
)

const (
	actorKey    = "actor"
	ActorHeader = "X-Actor-ID"
)

// ActorID returns the identity acting on this request, or "" when none was established.
func ActorID(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := c.Get("claims"); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			return subject(cm)
		}
	}
	return ""
}

var devActorOnce sync.Once

// HeaderActorMiddleware trusts the X-Actor-ID header as the caller identity. It exists for local
// runs without an identity provider and must never sit in front of a public listener.
func HeaderActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		devActorOnce.Do(func() {
			logger.Warnf("accepting %s header as caller identity; do not expose this listener", ActorHeader)
		})
		id := strings.TrimSpace(c.GetHeader(ActorHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + ActorHeader + " header"})
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}
