package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dice-arena-backend/internal/config"
	"dice-arena-backend/internal/handlers"
	"dice-arena-backend/internal/middleware"
	"dice-arena-backend/internal/services"
	"dice-arena-backend/internal/variant"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	settingsLoader := variant.NewSettingsLoader(cfg.ConfigDir)

	matchService := services.NewMatchService(redisService, settingsLoader, logger)
	wsHandler := handlers.NewWebSocketHandler(logger)
	matchService.SetBroadcaster(wsHandler)

	authHandler := handlers.NewAuthHandler(redisService, jwtService, cfg)
	matchHandler := handlers.NewMatchHandler(matchService, redisService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/guest", authHandler.GuestAuth)
	router.GET("/variants", matchHandler.ListVariants)
	router.POST("/verify", matchHandler.VerifyDraw)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/me", authHandler.GetCurrentPlayer)
		protected.POST("/logout", authHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		matches := protected.Group("/matches")
		{
			matches.POST("", matchHandler.CreateMatch)
			matches.GET("/:id", matchHandler.GetMatch)
			matches.POST("/:id/join", matchHandler.JoinMatch)
			matches.POST("/:id/start", matchHandler.StartMatch)
			matches.POST("/:id/rotate-seed", matchHandler.RotateSeed)

			matches.POST("/:id/roll", matchHandler.Roll)
			matches.POST("/:id/hold", matchHandler.Hold)
			matches.POST("/:id/bank", matchHandler.Bank)

			matches.GET("/:id/round", matchHandler.RoundStatus)
			matches.GET("/:id/verification", matchHandler.GetVerificationData)
		}

		protected.GET("/rooms/:room_id/wins", matchHandler.RoomWins)
	}

	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
