package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dice-arena-backend/internal/config"
	"dice-arena-backend/internal/models"
	"dice-arena-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	cfg          *config.Config
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		cfg:          cfg,
	}
}

// GuestAuth issues a fresh guest identity. There is no password flow;
// the session plus JWT is the whole identity.
func (h *AuthHandler) GuestAuth(c *gin.Context) {
	var req models.GuestAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session := &models.PlayerSession{
		PlayerID:     models.GeneratePlayerID(),
		SessionID:    models.GenerateSessionID(),
		Name:         req.Name,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}

	if err := h.redisService.StorePlayerSession(session, h.cfg.SessionTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(session.PlayerID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"player": gin.H{
			"id":   session.PlayerID,
			"name": session.Name,
		},
	})
}

func (h *AuthHandler) GetCurrentPlayer(c *gin.Context) {
	playerID, exists := c.Get("player_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Player not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	session, err := h.redisService.GetPlayerSession(playerID.(string), sessionID.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired or invalid"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player": gin.H{
			"id":   session.PlayerID,
			"name": session.Name,
		},
		"session": gin.H{
			"session_id":    session.SessionID,
			"created_at":    session.CreatedAt,
			"last_accessed": session.LastAccessed,
		},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	playerID, exists := c.Get("player_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Player not authenticated"})
		return
	}

	sessionID, exists := c.Get("session_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found"})
		return
	}

	if err := h.redisService.DeletePlayerSession(playerID.(string), sessionID.(string)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
