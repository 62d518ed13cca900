package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/oidc"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/server"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/storage"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/tokens"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/metrics"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Server.Environment, os.Stdout)
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		defer rdb.Close()
	}

	stores, err := server.OpenStores(ctx, cfg.MongoDB, false)
	if err != nil {
		logger.Fatalf("failed to open stores: %v", err)
	}
	defer func() { _ = stores.Close(context.Background()) }()

	var publisher *storage.MinIOPublisher
	if cfg.MinIO.Endpoint != "" {
		publisher, err = storage.NewMinIOPublisher(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("snapshot publishing disabled: %v", err)
			publisher = nil
		}
	}

	verifier, mode, err := newVerifier(ctx, cfg)
	if err != nil {
		logger.Fatalf("no usable identity provider: %v", err)
	}

	r, err := server.NewRouter(ctx, cfg, server.Deps{
		Stores:    stores,
		Redis:     rdb,
		Publisher: publisher,
		Verifier:  verifier,
		Auth:      mode,
	})
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting content service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// newVerifier picks the token verifier: Keycloak when configured, then HS256 with JWT_SECRET.
// Without either, ALLOW_INSECURE_TOKEN enables unsigned tokens and ALLOW_HEADER_ACTOR trusts
// the X-Actor-ID header. A configured provider that cannot be set up is an error.
func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, server.AuthMode, error) {
	var oidcErr error
	if cfg.Keycloak.URL != "" || cfg.Keycloak.Realm != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Keycloak)
		if err == nil {
			return ver, server.AuthOIDC, nil
		}
		oidcErr = err
		logger.Errorf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.JWT.Secret != "" {
		ver, err := tokens.NewHMAC(cfg.JWT)
		if err != nil {
			return nil, server.AuthNone, fmt.Errorf("HS256 verifier: %w", err)
		}
		if oidcErr != nil {
			logger.Warn("falling back to HS256 tokens; readiness reports oidc down")
		}
		logger.Infof("verifying HS256 tokens issued by %q", cfg.JWT.Issuer)
		return ver, server.AuthHMAC, nil
	}
	if oidcErr != nil {
		return nil, server.AuthNone, fmt.Errorf("OIDC verifier: %w", oidcErr)
	}
	if envEnabled("ALLOW_INSECURE_TOKEN") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier(), server.AuthInsecure, nil
	}
	if envEnabled("ALLOW_HEADER_ACTOR") {
		logger.Warn("trusting the X-Actor-ID header as caller identity")
		return nil, server.AuthHeader, nil
	}
	return nil, server.AuthNone, errors.New("set KEYCLOAK_URL and KEYCLOAK_REALM, JWT_SECRET, or ALLOW_HEADER_ACTOR=true for local runs")
}

func envEnabled(name string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(name)), "true")
}
