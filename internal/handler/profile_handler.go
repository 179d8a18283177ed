package handler

import (
	"net/http"

	"event-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	service service.ProfileService
}

func NewProfileHandler(service service.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("me", h.Me)
		router.GET("users/:id/profile", h.Get)
	}
}

// Me 依 token claims 同步並回傳呼叫者的 profile
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.service.EnsureProfile(c, PrincipalFrom(c))
	if err != nil {
		handleError(c, err, "Me")
		return
	}
	handleSuccess(c, profile, http.StatusOK)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	profile, err := h.service.GetProfile(c, PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "GetProfile")
		return
	}
	handleSuccess(c, profile, http.StatusOK)
}
