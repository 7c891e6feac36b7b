package router

import (
	"github.com/oksasatya/user-directory/internal/container"
	handlers "github.com/oksasatya/user-directory/internal/interface/http"
	"github.com/oksasatya/user-directory/internal/router/modules"
)

// InitModules builds handlers from the container and registers their modules.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	userHandler := handlers.NewUserHandler(c.Service, c.Logger)
	healthHandler := handlers.NewHealthHandler(c.Service, c.Logger)

	r.Add(modules.NewUserModule(userHandler, c.Redis, modules.UserLimits{
		PerMinute:     c.Config.RateLimitPerMin,
		BypassPrivate: c.Config.RateLimitBypassPrivate,
	}))
	r.Add(modules.NewHealthModule(healthHandler))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}
