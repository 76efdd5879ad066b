package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the preference endpoints. Both require a session;
// preferences are always the caller's own.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, sessions *auth.Service) {
	authed := r.Group("/settings", auth.RequireInvestor(sessions))
	authed.GET("", h.GetPreferences)
	authed.PUT("", h.UpdatePreferences)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	investor := auth.Investor(c)
	prefs, err := h.service.Get(c.Request.Context(), investor.Hex())
	if err != nil {
		h.logger.Error("Failed to load preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	investor := auth.Investor(c)
	prefs, err := h.service.Update(c.Request.Context(), investor.Hex(), req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
