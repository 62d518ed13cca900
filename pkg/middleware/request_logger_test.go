package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/memoryvista/memoryvista/backend/go-services/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure("production", &buf)
	defer logger.Configure("production", nil)

	r := gin.New()
	r.Use(RequestLogger(), HeaderActorMiddleware())
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
	req.Header.Set(ActorHeader, "viewer-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)

	var ev map[string]interface{}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &ev))
	require.Equal(t, "request", ev["message"])
	require.Equal(t, "warn", ev["level"])
	require.Equal(t, id, ev["request_id"])
	require.Equal(t, "/things/:id", ev["path"])
	require.Equal(t, "viewer-1", ev["actor"])
	require.EqualValues(t, 404, ev["status"])
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
