package holdings

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers holdings routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/investors/:address/holdings", h.GetPortfolio)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid investor address"})
		return
	}

	portfolio, err := h.service.Portfolio(c.Request.Context(), common.HexToAddress(raw))
	if err != nil {
		h.logger.Error("Failed to aggregate holdings", zap.String("investor", raw), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "holdings unavailable"})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}
