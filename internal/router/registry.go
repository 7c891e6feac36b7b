package router

import "github.com/gin-gonic/gin"

// Registry collects modules and mounts each of them on every group.
type Registry struct {
	Engine      *gin.Engine
	Groups      []*gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

// NewRegistry mounts modules at the engine root and under each prefix.
func NewRegistry(engine *gin.Engine, prefixes ...string) *Registry {
	groups := []*gin.RouterGroup{&engine.RouterGroup}
	for _, p := range prefixes {
		groups = append(groups, engine.Group(p))
	}
	return &Registry{Engine: engine, Groups: groups}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	for _, g := range r.Groups {
		rg := g.Group("")
		if len(r.middlewares) > 0 {
			rg.Use(r.middlewares...)
		}
		for _, m := range r.modules {
			m.Register(rg)
		}
	}
}
