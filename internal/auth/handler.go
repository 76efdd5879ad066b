package auth

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/session", h.CreateSession)
	r.GET("/me", RequireInvestor(h.service), h.Me)
}

type sessionRequest struct {
	Address string `json:"address" binding:"required"`
}

// CreateSession issues a session token for a connected wallet address.
func (h *Handler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a wallet address is required"})
		return
	}

	token, err := h.service.IssueToken(common.HexToAddress(req.Address))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the session's wallet address.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"address": Investor(c).Hex()})
}
