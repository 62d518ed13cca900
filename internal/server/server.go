package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/handlers"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	contenthandler "github.com/memoryvista/memoryvista/backend/go-services/internal/content/handler"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
	grantshandler "github.com/memoryvista/memoryvista/backend/go-services/internal/permissions/handler"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/storage"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/workflow"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const presignTTL = 15 * time.Minute

// AuthMode names how API callers are identified.
type AuthMode string

const (
	AuthNone     AuthMode = ""
	AuthOIDC     AuthMode = "oidc"
	AuthHMAC     AuthMode = "hs256"
	AuthInsecure AuthMode = "insecure"
	// AuthHeader trusts X-Actor-ID. Only for local runs that opt in explicitly.
	AuthHeader AuthMode = "header"
)

// Deps are the collaborators the HTTP surface is built from. Redis and Publisher are optional.
// Auth says which Verifier was chosen. With no Verifier and Auth other than AuthHeader every
// API request is rejected.
type Deps struct {
	Stores    *Stores
	Redis     *redis.Client
	Publisher *storage.MinIOPublisher
	Verifier  middleware.Verifier
	Auth      AuthMode
}

// unavailableVerifier stands in when no identity provider could be set up.
type unavailableVerifier struct{}

func (unavailableVerifier) Verify(context.Context, string) (middleware.Token, error) {
	return nil, errors.New("no identity provider available")
}

func (d Deps) authenticated() bool {
	return d.Verifier != nil || d.Auth == AuthHeader
}

var startTime = time.Now()

// NewRouter wires the permission oracle, the workflow service and every route.
func NewRouter(ctx context.Context, cfg *config.Config, d Deps) (*gin.Engine, error) {
	oracleOpts := []permissions.OracleOption{
		permissions.WithSettings(permissions.NewSettingsCache(d.Stores.Settings, cfg.Workflow.SettingsTTL)),
	}
	if d.Redis != nil {
		oracleOpts = append(oracleOpts, permissions.WithGrantCache(permissions.NewRedisGrantCache(d.Redis, "", cfg.Workflow.GrantCacheTTL)))
	}
	oracle := permissions.NewOracle(d.Stores.Grants, oracleOpts...)

	grantSvc := permissions.NewService(oracle, d.Stores.Grants, d.Stores.Settings)
	if err := grantSvc.SeedSettings(ctx, cfg.Workflow.PlatformAdmins); err != nil {
		return nil, err
	}

	wfOpts := []workflow.Option{workflow.WithMaxAttempts(cfg.Workflow.MaxAttempts)}
	if d.Publisher != nil {
		wfOpts = append(wfOpts, workflow.WithPublisher(d.Publisher))
	}
	wf := workflow.NewService(d.Stores.Content, oracle, wfOpts...)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(cfg, d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	switch {
	case d.Verifier != nil:
		api.Use(middleware.AuthMiddleware(d.Verifier))
	case d.Auth == AuthHeader:
		api.Use(middleware.HeaderActorMiddleware())
	default:
		logger.Error("no identity provider available; every API request will be rejected")
		api.Use(middleware.AuthMiddleware(unavailableVerifier{}))
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			api.Use(middleware.RedisRateLimitMiddleware(d.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			api.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	contenthandler.RegisterContentRoutes(api, wf)
	if d.Publisher != nil {
		contenthandler.RegisterPublishedRoutes(api, wf, d.Publisher, presignTTL)
	}
	grantshandler.RegisterGrantRoutes(api, grantSvc)

	logger.Infof("routes ready: store=%s redis=%v publisher=%v auth=%q",
		d.Stores.Backend, d.Redis != nil, d.Publisher != nil, d.Auth)
	return r, nil
}

// readiness reports 200 only when every configured dependency answers.
func readiness(cfg *config.Config, d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		deps := map[string]bool{}
		deps["store"] = d.Stores.Content.Ping(ctx) == nil
		if d.Redis != nil {
			deps["redis"] = d.Redis.Ping(ctx).Err() == nil
		}
		if d.Publisher != nil {
			deps["minio"] = d.Publisher.Ping(ctx) == nil
		}
		deps["auth"] = d.authenticated()
		if cfg.Keycloak.URL != "" {
			deps["oidc"] = d.Auth == AuthOIDC && d.Verifier != nil
		}

		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		body := gin.H{"deps": deps, "backend": d.Stores.Backend, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	}
}
