package router

import "github.com/gin-gonic/gin"

// Module registers a feature's routes. The registry calls Register once per
// mount point, so implementations must not keep per-group state.
type Module interface {
	Register(rg *gin.RouterGroup)
}
