package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-directory/internal/application"
	"github.com/oksasatya/user-directory/pkg/response"
)

type HealthHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewHealthHandler(svc *userapp.Service, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Svc: svc, Logger: logger}
}

// Health reports whether the user store is reachable.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.Svc.Ping(c.Request.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Warn("health check: store ping failed")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "healthy", nil)
}
