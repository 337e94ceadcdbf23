package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// service implements the Service interface
type service struct {
	username     string
	passwordHash []byte
	jwtSecret    string
	jwtExpiry    time.Duration
	logger       *logger.Logger
}

// NewService creates an operator auth service with JWT validation and defaults
func NewService(jwtCfg *config.JWTConfig, adminCfg *config.AdminConfig, log *logger.Logger) (Service, error) {
	// Set defaults for nil or empty config values
	secret := "change-me-in-production"
	if jwtCfg != nil && jwtCfg.Secret != "" {
		secret = jwtCfg.Secret
	}

	var expiry time.Duration = time.Hour
	if jwtCfg != nil && jwtCfg.Expiration != "" {
		duration, err := time.ParseDuration(jwtCfg.Expiration)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT expiration '%s': %v", jwtCfg.Expiration, err)
		}
		expiry = duration
	}

	username := "admin"
	var hash []byte
	if adminCfg != nil {
		if adminCfg.Username != "" {
			username = adminCfg.Username
		}
		if adminCfg.PasswordHash != "" {
			hash = []byte(adminCfg.PasswordHash)
			if _, err := bcrypt.Cost(hash); err != nil {
				return nil, fmt.Errorf("invalid admin password hash: %v", err)
			}
		}
	}

	return &service{
		username:     username,
		passwordHash: hash,
		jwtSecret:    secret,
		jwtExpiry:    expiry,
		logger:       log.WithComponent("admin-service"),
	}, nil
}

func (s *service) Login(username, password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 {
		return "", time.Time{}, ErrLoginDisabled
	}

	s.logger.Info("Operator login attempt for " + username)
	if username != s.username {
		s.logger.Info("Login failed - unknown operator: " + username)
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Info("Login failed - invalid password for " + username)
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(username)
	if err != nil {
		s.logger.Error("Failed to generate JWT token for " + username + ": " + err.Error())
		return "", time.Time{}, err
	}

	s.logger.Info("Operator logged in: " + username)
	return token, expiresAt, nil
}

func (s *service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != RoleOperator {
		return nil, fmt.Errorf("%w: role %q may not administer the engine", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

func (s *service) generateToken(username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.jwtExpiry)
	claims := Claims{
		Username: username,
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "movie-recommender",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}
