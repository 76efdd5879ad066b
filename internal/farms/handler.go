package farms

import (
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes registers farm catalog routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/farms", h.ListFarms)
	r.GET("/farms/:id", h.GetFarm)
}

func (h *Handler) ListFarms(c *gin.Context) {
	query := ListQuery{
		ActiveOnly: c.Query("active") == "true",
		Search:     c.Query("search"),
		SortBy:     SortField(c.DefaultQuery("sort", string(SortByID))),
		Desc:       c.Query("order") == "desc",
	}

	records, err := h.service.ListFarms(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, ErrCatalogUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "farm catalog unavailable"})
			return
		}
		h.logger.Error("Failed to list farms", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list farms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"farms": records, "count": len(records)})
}

func (h *Handler) GetFarm(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farm id"})
		return
	}

	farm, err := h.service.Farm(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to read farm", zap.Uint64("farm_id", id), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "farm not found"})
		return
	}

	c.JSON(http.StatusOK, farm)
}
