package auth

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestIssueAndVerifyToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	investor := common.HexToAddress("0x1111111111111111111111111111111111111111")

	token, err := service.IssueToken(investor)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	verified, err := service.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, investor, verified)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", time.Hour)
	verifier := NewService("secret-b", time.Hour)
	investor := common.HexToAddress("0x1111111111111111111111111111111111111111")

	token, err := issuer.IssueToken(investor)
	assert.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	service.ttl = -time.Minute
	investor := common.HexToAddress("0x1111111111111111111111111111111111111111")

	token, err := service.IssueToken(investor)
	assert.NoError(t, err)

	_, err = service.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	_, err := service.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
