package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/user-directory/internal/interface/http"
	"github.com/oksasatya/user-directory/internal/interface/middleware"
)

// UserLimits configures the per-IP limiter on /users.
type UserLimits struct {
	PerMinute     int
	BypassPrivate bool
}

// UserModule wires the user directory CRUD routes:
// POST /users, GET /users, GET /users/search, GET|PUT|DELETE /users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
	Limits  UserLimits
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, limits UserLimits) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if m.Limits.BypassPrivate {
		allow = middleware.AllowPrivateIP()
	}

	users := rg.Group("/users")
	users.Use(middleware.RateLimit(m.Redis, m.Limits.PerMinute, time.Minute, middleware.KeyByIP(), allow))
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
