package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realtime-leaderboard/internal/adapter/gin/handler"
	"realtime-leaderboard/internal/adapter/gin/middleware"
)

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	lbHandler *handler.LeaderboardHandler,
	rateLimiter *middleware.RateLimiter,
	allowedOrigins []string,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		// The allow-list may carry wildcard entries like https://*.netlify.app.
		AllowWildcard:    true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC(),
		})
	})

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.GET("", lbHandler.ListUsers)
			users.POST("", lbHandler.CreateUser)
			users.POST("/:userId/claim", rateLimiter.Middleware(), lbHandler.Claim)
		}

		api.GET("/leaderboard", lbHandler.ListUsers)
		api.GET("/history", lbHandler.ListHistory)
		api.GET("/stream", lbHandler.Stream)
	}

	return router
}
