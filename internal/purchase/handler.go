package purchase

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/auth"
)

type Handler struct {
	orchestrator *Orchestrator
	repo         Repository
	logger       *zap.Logger
}

func NewHandler(orchestrator *Orchestrator, repo Repository, logger *zap.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, repo: repo, logger: logger}
}

// RegisterRoutes registers purchase routes. Mutating routes require an
// investor session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, sessions *auth.Service) {
	r.GET("/purchases/:id", h.GetAttempt)
	r.GET("/investors/:address/purchases", h.ListAttempts)
	r.GET("/investors/:address/purchases/export", h.ExportStatement)

	authed := r.Group("", auth.RequireInvestor(sessions))
	authed.POST("/purchases", h.SubmitPurchase)
	authed.POST("/redemptions", h.SubmitRedemption)
	authed.POST("/rollovers", h.SubmitRollover)
}

func (h *Handler) SubmitPurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "farm_id and amount are required"})
		return
	}

	attempt, err := h.orchestrator.SubmitPurchase(c.Request.Context(), auth.Investor(c), req)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, attempt)
}

func (h *Handler) SubmitRedemption(c *gin.Context) {
	var req RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bond_id is required"})
		return
	}

	attempt, err := h.orchestrator.SubmitRedemption(c.Request.Context(), auth.Investor(c), req)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, attempt)
}

func (h *Handler) SubmitRollover(c *gin.Context) {
	var req RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bond_id and farm_id are required"})
		return
	}

	attempt, err := h.orchestrator.SubmitRollover(c.Request.Context(), auth.Investor(c), req)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, attempt)
}

func (h *Handler) GetAttempt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt id"})
		return
	}

	attempt, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (h *Handler) ListAttempts(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid investor address"})
		return
	}

	attempts, err := h.repo.ListByInvestor(c.Request.Context(), common.HexToAddress(raw).Hex(), 50)
	if err != nil {
		h.logger.Error("Failed to list attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attempts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
}

// ExportStatement streams the investor's attempt history as a CSV file.
func (h *Handler) ExportStatement(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid investor address"})
		return
	}
	address := common.HexToAddress(raw).Hex()

	attempts, err := h.repo.ListByInvestor(c.Request.Context(), address, 1000)
	if err != nil {
		h.logger.Error("Failed to export statement", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export statement"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-statement.csv", address))
	if err := WriteStatementCSV(c.Writer, attempts); err != nil {
		h.logger.Error("Failed to write statement", zap.Error(err))
	}
}

func (h *Handler) renderSubmitError(c *gin.Context, err error) {
	if rejection, ok := AsRejection(err); ok {
		status := http.StatusUnprocessableEntity
		if rejection.Code == CodeAlreadyInProgress {
			status = http.StatusConflict
		}
		c.JSON(status, rejection)
		return
	}
	h.logger.Error("Submission failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "submission failed, please retry"})
}
