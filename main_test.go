package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/server"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

func verifierConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workflow.MaxAttempts = 3
	cfg.Workflow.GrantCacheTTL = time.Minute
	cfg.Workflow.SettingsTTL = time.Minute
	cfg.Workflow.PlatformAdmins = []string{"root"}
	cfg.JWT.Issuer = "memoryvista"
	return cfg
}

func clearAuthEnv(t *testing.T) {
	t.Setenv("ALLOW_INSECURE_TOKEN", "")
	t.Setenv("ALLOW_HEADER_ACTOR", "")
}

func TestNewVerifier_UnreachableKeycloakFailsClosed(t *testing.T) {
	clearAuthEnv(t)
	// opting into header identities must not rescue a broken provider
	t.Setenv("ALLOW_HEADER_ACTOR", "true")
	cfg := verifierConfig()
	cfg.Keycloak = config.KeycloakConfig{URL: "http://127.0.0.1:1", Realm: "memoryvista"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ver, mode, err := newVerifier(ctx, cfg)
	require.Error(t, err)
	require.Nil(t, ver)
	require.Equal(t, server.AuthNone, mode)

	// a router built from that outcome still refuses a claimed identity
	r, err := server.NewRouter(ctx, cfg, server.Deps{Stores: server.MemoryStores(), Verifier: ver, Auth: mode})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil)
	req.Header.Set(middleware.ActorHeader, "root")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewVerifier_KeycloakDownFallsBackToHS256(t *testing.T) {
	clearAuthEnv(t)
	cfg := verifierConfig()
	cfg.Keycloak = config.KeycloakConfig{URL: "http://127.0.0.1:1", Realm: "memoryvista"}
	cfg.JWT.Secret = "main-test-secret-xxxxxxxxxxxxxxxxxx"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ver, mode, err := newVerifier(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, ver)
	require.Equal(t, server.AuthHMAC, mode)
}

func TestNewVerifier_LocalModesNeedOptIn(t *testing.T) {
	clearAuthEnv(t)
	cfg := verifierConfig()

	_, _, err := newVerifier(context.Background(), cfg)
	require.Error(t, err)

	t.Setenv("ALLOW_HEADER_ACTOR", "true")
	ver, mode, err := newVerifier(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, ver)
	require.Equal(t, server.AuthHeader, mode)

	t.Setenv("ALLOW_INSECURE_TOKEN", "TRUE")
	ver, mode, err = newVerifier(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, ver)
	require.Equal(t, server.AuthInsecure, mode)
}
