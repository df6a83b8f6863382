package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is stamped into and required on every bearer token.
const TokenIssuer = "incident-service"

const clockSkew = 30 * time.Second

var errTokenScope = errors.New("token missing subject or business")

// TokenManager signs and verifies member bearer tokens (HS256).
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenManager builds a manager; a non-positive TTL means one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Claims scope a user (the registered subject) to one business.
type Claims struct {
	BusinessID string `json:"business_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token scoping userID to businessID.
func (tm *TokenManager) GenerateToken(userID, businessID string) (string, time.Time, error) {
	if userID == "" || businessID == "" {
		return "", time.Time{}, errTokenScope
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, err := tm.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return tm.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.BusinessID == "" {
		return nil, errTokenScope
	}
	return claims, nil
}
