package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken means the session token failed verification.
var ErrInvalidToken = errors.New("invalid session token")

// Service issues and verifies investor session tokens. A session binds a
// wallet address established by the frontend's wallet provider; the
// backend never manages the wallet connection itself.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates the session service.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl}
}

// IssueToken mints a session token for the wallet address.
func (s *Service) IssueToken(investor common.Address) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   investor.Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the token and returns the bound wallet address.
func (s *Service) VerifyToken(raw string) (common.Address, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return common.Address{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !common.IsHexAddress(claims.Subject) {
		return common.Address{}, ErrInvalidToken
	}
	return common.HexToAddress(claims.Subject), nil
}
