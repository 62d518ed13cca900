package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content/repository"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/permissions"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/workflow"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

type errRepo struct{ repository.Repository }

func (errRepo) Get(ctx context.Context, id string) (*content.Item, error) {
	return nil, context.DeadlineExceeded
}

type alwaysConflict struct{ repository.Repository }

func (alwaysConflict) ApplyChange(ctx context.Context, id string, rev int64, ch content.Change) (*content.Item, error) {
	return nil, repository.ErrConflict
}

func newRouter(t *testing.T, wrap func(repository.Repository) repository.Repository) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	grants := permissions.NewMemoryGrantStore()
	require.NoError(t, grants.PutGrant(ctx, &permissions.Grant{Identity: "ed", ResourceID: "uni-1", Role: permissions.RoleEditor}))
	require.NoError(t, grants.PutGrant(ctx, &permissions.Grant{Identity: "boss", ResourceID: "uni-1", Role: permissions.RoleAdmin}))
	require.NoError(t, grants.PutGrant(ctx, &permissions.Grant{Identity: "view", ResourceID: "p-1", Role: permissions.RoleViewer}))

	var repo repository.Repository = repository.NewMemoryRepo()
	if wrap != nil {
		repo = wrap(repo)
	}
	svc := workflow.NewService(repo, permissions.NewOracle(grants))

	g := gin.New()
	api := g.Group("/api/v1", middleware.HeaderActorMiddleware())
	RegisterContentRoutes(api, svc)
	return g
}

func call(g *gin.Engine, method, path, actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.ActorHeader, actor)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func create(t *testing.T, g *gin.Engine) string {
	t.Helper()
	w := call(g, http.MethodPost, "/api/v1/content", "ed", `{"universityId":"uni-1","profileId":"p-1","kind":"profile","title":"Grace Hopper"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var it content.Item
	decode(t, w, &it)
	require.Equal(t, content.StatusDraft, it.Status)
	return it.ID
}

func TestContentHandler_Workflow(t *testing.T) {
	g := newRouter(t, nil)
	id := create(t, g)

	w := call(g, http.MethodPatch, "/api/v1/content/"+id, "ed", `{"body":"Rear admiral."}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":"review"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":"review"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	var e map[string]string
	decode(t, w, &e)
	require.Equal(t, "invalid_transition", e["code"])

	w = call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "view", `{"to":"approved"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = call(g, http.MethodPost, "/api/v1/content/"+id+"/change-requests", "boss", `{"reason":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = call(g, http.MethodPost, "/api/v1/content/"+id+"/change-requests", "boss", `{"reason":"Add sources"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(g, http.MethodGet, "/api/v1/content/"+id+"/history", "view", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist []content.HistoryEntry
	decode(t, w, &hist)
	require.Len(t, hist, 2)
	require.Equal(t, content.EntryChangeRequest, hist[1].Type)
	require.Equal(t, "Add sources", hist[1].Reason)

	w = call(g, http.MethodGet, "/api/v1/content?status=draft", "view", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decode(t, w, &list)
	require.Len(t, list, 1)
	require.Equal(t, id, list[0]["id"])

	w = call(g, http.MethodGet, "/api/v1/content/"+id, "stranger", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	w = call(g, http.MethodGet, "/api/v1/content/nope", "ed", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentHandler_MalformedBody(t *testing.T) {
	g := newRouter(t, nil)
	id := create(t, g)
	w := call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentHandler_RetryableErrors(t *testing.T) {
	g := newRouter(t, func(r repository.Repository) repository.Repository { return alwaysConflict{r} })
	id := create(t, g)
	w := call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":"review"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	var e map[string]string
	decode(t, w, &e)
	require.Equal(t, "concurrent_modification", e["code"])

	g = newRouter(t, func(r repository.Repository) repository.Repository { return errRepo{r} })
	w = call(g, http.MethodGet, "/api/v1/content/any", "ed", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.NotContains(t, w.Body.String(), "deadline")
}

type fakeLinker struct{}

func (fakeLinker) PresignedURL(ctx context.Context, id string, expires time.Duration) (string, error) {
	return "https://objects.example/content/" + id + ".json?sig=x", nil
}

func TestPublishedRoute(t *testing.T) {
	ctx := context.Background()
	grants := permissions.NewMemoryGrantStore()
	require.NoError(t, grants.PutGrant(ctx, &permissions.Grant{Identity: "ed", ResourceID: "uni-1", Role: permissions.RoleEditor}))
	svc := workflow.NewService(repository.NewMemoryRepo(), permissions.NewOracle(grants))
	g := gin.New()
	api := g.Group("/api/v1", middleware.HeaderActorMiddleware())
	RegisterContentRoutes(api, svc)
	RegisterPublishedRoutes(api, svc, fakeLinker{}, time.Minute)

	id := create(t, g)
	w := call(g, http.MethodGet, "/api/v1/content/"+id+"/published", "ed", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	for _, to := range []string{"review", "approved"} {
		w = call(g, http.MethodPost, "/api/v1/content/"+id+"/transitions", "ed", `{"to":"`+to+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = call(g, http.MethodGet, "/api/v1/content/"+id+"/published", "ed", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]interface{}
	decode(t, w, &out)
	require.Contains(t, out["url"], id)
}
