package admin

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/movie-recommender/internal/recommendation"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginDisabled      = errors.New("operator login is not configured")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims represents operator JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RoleOperator may trigger rebuilds
const RoleOperator = "operator"

// Service defines operator authentication
type Service interface {
	Login(username, password string) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Engine is the part of the recommendation engine the admin routes drive
type Engine interface {
	Rebuild(ctx context.Context) (*recommendation.Snapshot, error)
	StartRebuild(ctx context.Context, done func(*recommendation.Snapshot, error)) bool
	Status() recommendation.Status
}

// LoginRequest represents operator login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RebuildResponse reports a finished or accepted rebuild
type RebuildResponse struct {
	Accepted bool                  `json:"accepted"`
	Status   recommendation.Status `json:"status"`
}
