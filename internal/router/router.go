package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/handler"
	"github.com/kuisduel/kuisduel-backend/internal/middleware"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Duel   *handler.DuelHandler
	Wallet *handler.WalletHandler
	WS     *handler.WSHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.GET("/me", middleware.RequirePlayerJWT(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequirePlayerJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Player Group (JWT + Single Device) ─────────────────────────
	playerAPI := router.Group("/api/v1")
	playerAPI.Use(
		middleware.RequirePlayerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		playerAPI.GET("/duels", handlers.Duel.Lobby)
		playerAPI.POST("/duels", handlers.Duel.Create)
		playerAPI.GET("/duels/active", handlers.Duel.Active)
		playerAPI.GET("/duels/history", handlers.Duel.History)
		playerAPI.GET("/duels/:duel_id", handlers.Duel.Detail)
		playerAPI.DELETE("/duels/:duel_id", handlers.Duel.Cancel)
		playerAPI.POST("/duels/:duel_id/join", handlers.Duel.Join)
		playerAPI.POST("/duels/:duel_id/forfeit", handlers.Duel.Forfeit)
		playerAPI.GET("/duels/:duel_id/answers", handlers.Duel.Answers)

		// Categories change rarely; let clients cache them for a minute.
		playerAPI.GET("/categories", middleware.CacheControl(60), handlers.Duel.Categories)

		playerAPI.GET("/wallet", handlers.Wallet.Balance)
		playerAPI.GET("/wallet/entries", handlers.Wallet.Statement)
	}

	// ─── 3. WebSocket Group (Player WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequirePlayerWSAuth(authService))
	{
		ws.GET("/duels/:duel_id/stream", handlers.WS.DuelStream)
	}

	return router
}
