package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/movie-recommender/internal/recommendation"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/gin-gonic/gin"
)

const defaultRebuildTimeout = 30 * time.Minute

// Handler handles operator HTTP requests
type Handler struct {
	service        Service
	engine         Engine
	rebuildTimeout time.Duration
	logger         *logger.Logger
}

// NewHandler creates a new admin handler
func NewHandler(service Service, engine Engine, log *logger.Logger) *Handler {
	return &Handler{
		service:        service,
		engine:         engine,
		rebuildTimeout: defaultRebuildTimeout,
		logger:         log.WithComponent("admin-handler"),
	}
}

// Token handles operator login
func (h *Handler) Token(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrLoginDisabled) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Operator login is disabled"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// Rebuild starts an index rebuild; with ?wait=true it responds after publish
func (h *Handler) Rebuild(c *gin.Context) {
	if c.Query("wait") == "true" {
		if _, err := h.engine.Rebuild(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rebuild failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, RebuildResponse{Accepted: true, Status: h.engine.Status()})
		return
	}

	operator := c.GetString("operator")
	ctx, cancel := context.WithTimeout(context.Background(), h.rebuildTimeout)
	started := h.engine.StartRebuild(ctx, func(_ *recommendation.Snapshot, err error) {
		defer cancel()
		if err != nil {
			h.logger.Error("Rebuild requested by " + operator + " failed: " + err.Error())
		}
	})
	if !started {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "Rebuild already in progress"})
		return
	}

	h.logger.Info("Rebuild requested by " + operator)
	c.JSON(http.StatusAccepted, RebuildResponse{Accepted: true, Status: h.engine.Status()})
}

// Status returns the engine status
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status())
}

// AuthMiddleware creates middleware for operator JWT authentication
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check Bearer format
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := h.service.ValidateToken(tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("operator", claims.Username)
		c.Next()
	}
}

// RegisterRoutes registers all admin routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.POST("/token", h.Token)

	protected := admin.Group("")
	protected.Use(h.AuthMiddleware())
	{
		protected.POST("/rebuild", h.Rebuild)
		protected.GET("/status", h.Status)
	}
}
