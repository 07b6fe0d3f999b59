package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrWrongAudience = errors.New("token audience not accepted")
)

const adminRole = "admin"

// AppMetadata is the server-controlled metadata block of a Supabase access token.
type AppMetadata struct {
	Provider string `json:"provider,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UserClaims are the claims carried by a Supabase access token.
type UserClaims struct {
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Role        string      `json:"role,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserID is the profile id (token subject).
func (c *UserClaims) UserID() string {
	return c.Subject
}

func (c *UserClaims) IsAdmin() bool {
	return c.AppMetadata.Role == adminRole
}

type TokenManager interface {
	GenerateAccessToken(userID, email string, admin bool, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret   []byte
	audience string
}

// NewTokenManager validates HS256 tokens signed with the project's JWT secret.
func NewTokenManager(secret, audience string) TokenManager {
	return &tokenManager{
		secret:   []byte(secret),
		audience: audience,
	}
}

// GenerateAccessToken mints a token shaped like the hosted auth backend's.
// Used by local tooling and tests.
func (m *tokenManager) GenerateAccessToken(userID, email string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Email:     email,
		Role:      "authenticated",
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{m.audience},
			ID:        uuid.NewString(),
		},
	}
	if admin {
		claims.AppMetadata.Role = adminRole
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithAudience(m.audience), jwt.WithExpirationRequired())

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrWrongAudience
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
