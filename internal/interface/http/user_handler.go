package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-directory/internal/application"
	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/pkg/response"
	"github.com/oksasatya/user-directory/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Create handles POST /users.
func (h *UserHandler) Create(c *gin.Context) {
	var req entity.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// List handles GET /users?q&min_age&max_age&is_active&page&limit.
func (h *UserHandler) List(c *gin.Context) {
	f, p, details := parseListQuery(c)
	if len(details) > 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid query", details)
		return
	}
	users, err := h.Svc.ListUsers(c.Request.Context(), f, p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Update handles PUT /users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	var patch entity.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search handles GET /users/search?q&size against the search mirror.
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), strings.TrimSpace(c.Query("q")), size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) writeError(c *gin.Context, err error) {
	var verr *userapp.ValidationError
	var serr *userapp.StoreError
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, http.StatusBadRequest, "invalid input", verr.Details)
	case errors.Is(err, userapp.ErrInvalidID):
		response.Error[any](c, http.StatusBadRequest, "invalid id", nil)
	case errors.Is(err, userapp.ErrNothingToUpdate):
		response.Error[any](c, http.StatusBadRequest, "nothing to update", nil)
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, userapp.ErrEmailTaken):
		response.Error[any](c, http.StatusConflict, "email already registered", nil)
	case errors.As(err, &serr) && serr.Op == userapp.OpCreate:
		response.Error[any](c, http.StatusBadRequest, "error creating user", nil)
	case errors.As(err, &serr) && serr.Op == userapp.OpUpdate:
		response.Error[any](c, http.StatusBadRequest, "error updating user", nil)
	case errors.As(err, &serr) && serr.Op == userapp.OpList:
		h.logFailure(c, err)
		response.Error[any](c, http.StatusInternalServerError, "error listing users", nil)
	default:
		h.logFailure(c, err)
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}

func (h *UserHandler) logFailure(c *gin.Context, err error) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
	}
}

// parseListQuery reads list parameters, applying page=1 and limit=10 when absent.
// Range checks are left to the service.
func parseListQuery(c *gin.Context) (entity.ListFilter, entity.Page, map[string]string) {
	details := map[string]string{}
	// q is matched verbatim, spaces included.
	f := entity.ListFilter{Query: c.Query("q")}
	p := entity.Page{Number: 1, Limit: entity.DefaultPageLimit}

	optInt := func(key string) *int {
		raw, ok := c.GetQuery(key)
		if !ok || raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			details[key] = "must be an integer"
			return nil
		}
		return &v
	}

	f.MinAge = optInt("min_age")
	f.MaxAge = optInt("max_age")
	if v := optInt("page"); v != nil {
		p.Number = *v
	}
	if v := optInt("limit"); v != nil {
		p.Limit = *v
	}
	if raw, ok := c.GetQuery("is_active"); ok && raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			details["is_active"] = "must be a boolean value"
		} else {
			f.IsActive = &b
		}
	}
	return f, p, details
}
