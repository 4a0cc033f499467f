package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dice-arena-backend/internal/models"
	"dice-arena-backend/internal/services"
	"dice-arena-backend/internal/variant"
)

type MatchHandler struct {
	matchService *services.MatchService
	redisService *services.RedisService
}

func NewMatchHandler(matchService *services.MatchService, redisService *services.RedisService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		redisService: redisService,
	}
}

func (h *MatchHandler) CreateMatch(c *gin.Context) {
	playerID := c.GetString("player_id")

	var req models.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	// Rate Limit: 10 match creations per minute
	allowed, err := h.redisService.CheckRateLimit(playerID, "create", 10, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many matches created. Please wait."})
		return
	}

	match, err := h.matchService.CreateMatch(c.Request.Context(), playerID, h.playerName(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to create match",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   matchResponse(match),
	})
}

func (h *MatchHandler) JoinMatch(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	var req models.JoinMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	name := req.Name
	if name == "" {
		name = h.playerName(c)
	}

	match, err := h.matchService.JoinMatch(c.Request.Context(), matchID, playerID, name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to join match",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   matchResponse(match),
	})
}

func (h *MatchHandler) StartMatch(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	match, err := h.matchService.StartMatch(c.Request.Context(), matchID, playerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to start match",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   matchResponse(match),
	})
}

func (h *MatchHandler) RotateSeed(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	match, err := h.matchService.RotateSeed(c.Request.Context(), matchID, playerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to rotate seed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   matchResponse(match),
	})
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID := c.Param("id")

	match, err := h.matchService.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Match not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"match":   matchResponse(match),
	})
}

func (h *MatchHandler) Roll(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	var req models.RollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	// Rate Limit: 120 turn actions per minute
	allowed, err := h.redisService.CheckRateLimit(playerID, "action", services.DefaultRateLimitActions, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many actions. Please wait."})
		return
	}

	state, events, err := h.matchService.Roll(c.Request.Context(), matchID, playerID, req.RollSeq)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to roll",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
		"events":  events,
	})
}

func (h *MatchHandler) Hold(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	var req models.HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	allowed, err := h.redisService.CheckRateLimit(playerID, "action", services.DefaultRateLimitActions, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many actions. Please wait."})
		return
	}

	state, events, err := h.matchService.Hold(c.Request.Context(), matchID, playerID, req.Indices)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to hold",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
		"events":  events,
	})
}

func (h *MatchHandler) Bank(c *gin.Context) {
	playerID := c.GetString("player_id")
	matchID := c.Param("id")

	var req models.BankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	allowed, err := h.redisService.CheckRateLimit(playerID, "action", services.DefaultRateLimitActions, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many actions. Please wait."})
		return
	}

	state, events, err := h.matchService.Bank(c.Request.Context(), matchID, playerID, req.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to bank",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   state,
		"events":  events,
	})
}

func (h *MatchHandler) RoundStatus(c *gin.Context) {
	matchID := c.Param("id")

	status, err := h.matchService.RoundStatus(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Failed to get round status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   status,
	})
}

func (h *MatchHandler) GetVerificationData(c *gin.Context) {
	matchID := c.Param("id")

	data, err := h.matchService.Verification(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Failed to get verification data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *MatchHandler) VerifyDraw(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	valid, value, err := h.matchService.VerifyDraw(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"valid":       valid,
			"value":       value,
			"server_seed": req.ServerSeed,
			"client_seed": req.ClientSeed,
			"nonce":       req.Nonce,
		},
	})
}

func (h *MatchHandler) ListVariants(c *gin.Context) {
	var response []gin.H
	for _, tag := range variant.List() {
		v, err := variant.Get(string(tag))
		if err != nil {
			continue
		}
		cfg := v.Config()
		response = append(response, gin.H{
			"tag":         tag,
			"dice_count":  cfg.DiceCount,
			"face_min":    cfg.FaceMin,
			"face_max":    cfg.FaceMax,
			"sign_die":    cfg.SignDie,
			"min_players": cfg.MinPlayers,
			"max_players": cfg.MaxPlayers,
			"max_rounds":  cfg.MaxRounds,
			"actions":     v.AllowedActions(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"variants": response,
		"count":    len(response),
	})
}

func (h *MatchHandler) RoomWins(c *gin.Context) {
	roomID := c.Param("room_id")

	wins, err := h.redisService.GetRoomWins(roomID, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get room stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room_id": roomID,
		"wins":    wins,
	})
}

func (h *MatchHandler) playerName(c *gin.Context) string {
	playerID := c.GetString("player_id")
	sessionID := c.GetString("session_id")

	session, err := h.redisService.GetPlayerSession(playerID, sessionID)
	if err != nil {
		return "Guest"
	}
	return session.Name
}

func matchResponse(m *models.Match) gin.H {
	return gin.H{
		"id":               m.ID,
		"room_id":          m.RoomID,
		"host_id":          m.HostID,
		"variant":          m.Variant,
		"settings":         m.Settings,
		"status":           m.Status,
		"players":          m.Players,
		"round":            m.Round,
		"client_seed":      m.ClientSeed,
		"server_seed_hash": m.ServerSeedHash,
		"server_seed":      m.ServerSeed,
		"winner_id":        m.WinnerID,
		"created_at":       m.CreatedAt,
		"updated_at":       m.UpdatedAt,
	}
}
