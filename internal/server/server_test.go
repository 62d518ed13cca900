package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/tokens"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workflow.MaxAttempts = 3
	cfg.Workflow.GrantCacheTTL = time.Minute
	cfg.Workflow.SettingsTTL = time.Minute
	cfg.Workflow.PlatformAdmins = []string{"root"}
	cfg.JWT = config.JWTConfig{Secret: "server-test-secret-xxxxxxxxxxxxxxxx", Issuer: "memoryvista"}
	return cfg
}

type client struct {
	t      *testing.T
	r      *gin.Engine
	header func(req *http.Request, actor string)
}

func (c client) do(method, path, actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		c.header(req, actor)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func runScenario(t *testing.T, c client) {
	w := c.do(http.MethodPut, "/api/v1/resources/uni-1/grants/ed", "root", `{"role":"editor"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do(http.MethodPut, "/api/v1/resources/uni-1/grants/chief", "root", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/v1/content", "ed", `{"universityId":"uni-1","profileId":"p-1","kind":"article","title":"In memoriam"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	w = c.do(http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":"review"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodPost, "/api/v1/content/"+id+"/change-requests", "chief", `{"reason":"Needs more detail"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/v1/content/"+id+"/history", "ed", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist, 2)
	require.Equal(t, "change_request", hist[1]["type"])
}

func TestRouter_HeaderActor(t *testing.T) {
	r, err := NewRouter(context.Background(), testConfig(), Deps{Stores: MemoryStores(), Auth: AuthHeader})
	require.NoError(t, err)
	runScenario(t, client{t: t, r: r, header: func(req *http.Request, actor string) {
		req.Header.Set(middleware.ActorHeader, actor)
	}})
}

func TestRouter_BearerTokensAndRedisCache(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})

	cfg := testConfig()
	issuer, err := tokens.NewHMAC(cfg.JWT)
	require.NoError(t, err)
	r, err := NewRouter(context.Background(), cfg, Deps{Stores: MemoryStores(), Redis: rdb, Verifier: issuer, Auth: AuthHMAC})
	require.NoError(t, err)

	c := client{t: t, r: r, header: func(req *http.Request, actor string) {
		raw, err := issuer.GenerateAccessToken(actor, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+raw)
	}}
	runScenario(t, c)
	require.NotEmpty(t, m.Keys(), "grant lookups were cached in redis")

	w := c.do(http.MethodGet, "/api/v1/content", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	r, err := NewRouter(context.Background(), testConfig(), Deps{Stores: MemoryStores(), Auth: AuthHeader})
	require.NoError(t, err)
	c := client{t: t, r: r}

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", "", "").Code)
	w := c.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"backend":"memory"`)
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/metrics", "", "").Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/swagger/doc.json", "", "").Code)
}

func TestRouter_NotReadyWhenRedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	m.Close()

	r, err := NewRouter(context.Background(), testConfig(), Deps{Stores: MemoryStores(), Redis: rdb, Auth: AuthHeader})
	require.NoError(t, err)
	w := client{t: t, r: r}.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"redis":false`)
}

func TestRouter_NoIdentityProviderRejectsEveryone(t *testing.T) {
	r, err := NewRouter(context.Background(), testConfig(), Deps{Stores: MemoryStores()})
	require.NoError(t, err)
	c := client{t: t, r: r, header: func(req *http.Request, actor string) {
		req.Header.Set(middleware.ActorHeader, actor)
	}}

	w := c.do(http.MethodGet, "/api/v1/admin/settings", "root", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotContains(t, w.Body.String(), "platformAdmins")

	w = c.do(http.MethodGet, "/api/v1/content", "root", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	w = c.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"auth":false`)
}

func TestRouter_NotReadyWhenKeycloakWasSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Keycloak = config.KeycloakConfig{URL: "http://keycloak:8080", Realm: "memoryvista"}
	hmac, err := tokens.NewHMAC(cfg.JWT)
	require.NoError(t, err)

	r, err := NewRouter(context.Background(), cfg, Deps{Stores: MemoryStores(), Verifier: hmac, Auth: AuthHMAC})
	require.NoError(t, err)
	w := client{t: t, r: r}.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"oidc":false`)
	require.Contains(t, w.Body.String(), `"auth":true`)
}

func TestOpenStores_MemoryWithoutURI(t *testing.T) {
	s, err := OpenStores(context.Background(), config.MongoDBConfig{}, false)
	require.NoError(t, err)
	require.Equal(t, "memory", s.Backend)
	require.NoError(t, s.Close(context.Background()))
}
