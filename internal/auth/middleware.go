package auth

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const investorContextKey = "investor_address"

// RequireInvestor extracts and verifies the bearer session token, placing
// the investor address in the request context.
func RequireInvestor(sessions *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		investor, err := sessions.VerifyToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(investorContextKey, investor)
		c.Next()
	}
}

// Investor returns the authenticated wallet address, or the zero address
// when the request carries no session.
func Investor(c *gin.Context) common.Address {
	value, exists := c.Get(investorContextKey)
	if !exists {
		return common.Address{}
	}
	investor, ok := value.(common.Address)
	if !ok {
		return common.Address{}
	}
	return investor
}
