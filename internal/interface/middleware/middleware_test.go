package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	t.Run("generates", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(HeaderRequestID)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps a valid incoming id", func(t *testing.T) {
		in := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, in)
		w := serve(r, req)
		assert.Equal(t, in, w.Header().Get(HeaderRequestID))
		assert.Equal(t, in, w.Body.String())
	})

	t.Run("replaces garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "<script>")
		w := serve(r, req)
		assert.NotEqual(t, "<script>", w.Header().Get(HeaderRequestID))
	})
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"left-most forwarded", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
		{"invalid headers fall back", map[string]string{"CF-Connecting-IP": "nope", "X-Forwarded-For": "also-nope"}, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestKeyFuncs(t *testing.T) {
	r := gin.New()
	var byIP, byPath string
	r.GET("/users/:id", func(c *gin.Context) {
		c.Set("real_ip", "203.0.113.9")
		byIP = KeyByIP()(c)
		byPath = KeyByIPAndPath()(c)
	})
	serve(r, httptest.NewRequest(http.MethodGet, "/users/64b7f0c2a1b2c3d4e5f60718", nil))

	assert.Equal(t, "rl:ip:203.0.113.9", byIP)
	assert.Equal(t, "rl:path:GET:/users/:id:ip:203.0.113.9", byPath)
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	tests := map[string]bool{
		"127.0.0.1":   true,
		"10.1.2.3":    true,
		"172.20.0.5":  true,
		"192.168.1.1": true,
		"fd00::1":     true,
		"::1":         true,
		"8.8.8.8":     false,
		"172.32.0.1":  false,
		"not-an-ip":   false,
	}
	for ip, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	for name, mw := range map[string]gin.HandlerFunc{
		"nil client": RateLimit(nil, 10, time.Minute, KeyByIP(), nil),
		"zero limit": RateLimit(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0, time.Minute, KeyByIP(), nil),
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", mw, func(c *gin.Context) { c.Status(http.StatusNoContent) })
			w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		})
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimit_AllowBypassesRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/", RateLimit(rdb, 1, time.Minute, KeyByIP(), func(*gin.Context) bool { return true }),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 7, toInt(int64(7)))
	assert.Equal(t, 3, toInt(3))
	assert.Equal(t, 12, toInt("12"))
	assert.Equal(t, 0, toInt(nil))
}

func TestAccessLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestIDMiddleware(), AccessLog(logger))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/users/abc", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "request completed", entry.Message)
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/users/:id", entry.Data["path"])
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.NotEmpty(t, entry.Data["request_id"])
}
