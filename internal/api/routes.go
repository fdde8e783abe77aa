package api

import (
	"net/http"

	"reelsapp/reels-api/internal/service"

	"github.com/gin-gonic/gin"
)

// Services groups what the HTTP layer depends on.
type Services struct {
	Auth       service.AuthService
	Social     service.SocialService
	Reels      service.ReelService
	Feed       service.FeedService
	Engagement service.EngagementService
}

// NewRouter builds a gin engine with the request logger and recovery installed.
func NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(), gin.Recovery())
	return router
}

// SetupRoutes registers every endpoint. mediaDir, when set, is served under
// /media for the local asset store.
func SetupRoutes(router *gin.Engine, services Services, mediaDir string) {
	registerValidators()

	authHandler := NewAuthHandler(services.Auth, services.Social)
	socialHandler := NewSocialHandler(services.Social)
	reelHandler := NewReelHandler(services.Reels, services.Feed, services.Engagement)

	authMiddleware := AuthMiddleware(services.Auth)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if mediaDir != "" {
		router.Static("/media", mediaDir)
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		protected.POST("/users/:id/follow", socialHandler.Follow)
		protected.DELETE("/users/:id/follow", socialHandler.Unfollow)

		// --- Upload orchestration ---
		protected.POST("/uploads/initiate", reelHandler.InitiateUpload)

		reels := protected.Group("/reels")
		{
			reels.GET("", reelHandler.ListFeed)
			reels.GET("/mine", reelHandler.ListMine)

			reels.POST("/:id/uploads/local", reelHandler.UploadLocal)
			reels.POST("/:id/uploads/complete", reelHandler.CompleteUpload)
			reels.POST("/:id/ready", reelHandler.MarkReady)
			reels.POST("/:id/failed", reelHandler.MarkFailed)

			reels.PATCH("/:id", reelHandler.UpdateReel)
			reels.DELETE("/:id", reelHandler.DeleteReel)

			// --- Engagement ---
			reels.POST("/:id/like", reelHandler.ToggleLike)
			reels.POST("/:id/save", reelHandler.ToggleSave)
			reels.POST("/:id/view", reelHandler.RecordView)
		}
	}
}
