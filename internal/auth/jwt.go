// Package auth issues and validates the bearer tokens that tie every
// request to an account. Companies and invoices are scoped per account.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fiscalfacil/audit-service/internal/config"
)

const tokenExpiration = 24 * time.Hour

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrMissingUserID = errors.New("missing user_id in claims")
)

// Claims are the custom JWT claims carried by access tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// Service signs and validates access tokens
type Service struct {
	secret []byte
	issuer string
}

// NewService creates a token service
func NewService(cfg config.JWTConfig) *Service {
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// GenerateToken signs an access token for the given user
func (s *Service) GenerateToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates an access token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}
