package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-directory/config"
	"github.com/oksasatya/user-directory/internal/container"
	"github.com/oksasatya/user-directory/pkg/helpers"
)

func newApp(t *testing.T, debug bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		StoreDriver:         config.StoreMemory,
		RateLimitPerMin:     300,
		DebugMetricsEnabled: debug,
	}
	app, err := container.Build(context.Background(), cfg, helpers.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })

	r := gin.New()
	reg := NewRegistry(r, "/api")
	InitModules(reg, app)
	reg.RegisterAll()
	return r
}

func TestInitModules_Routes(t *testing.T) {
	r := newApp(t, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Alice","email":"alice@example.com","age":30}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for path, want := range map[string]int{
		"/users":          http.StatusOK,
		"/api/users":      http.StatusOK,
		"/users/search":   http.StatusOK,
		"/users/bad-id":   http.StatusBadRequest,
		"/healthz":        http.StatusOK,
		"/api/healthz":    http.StatusOK,
		"/debug/vars":     http.StatusOK,
		"/api/debug/vars": http.StatusOK,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestInitModules_DebugDisabled(t *testing.T) {
	r := newApp(t, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
