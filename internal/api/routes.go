package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"linkpage/internal/api/middleware"
	"linkpage/internal/auth"
	"linkpage/internal/config"
	"linkpage/internal/service"
	"linkpage/internal/storage"
	"linkpage/internal/tasks"
)

// Deps 汇总路由所需的服务与基础设施；Redis 与 Assets 可以为 nil。
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Tokens     *auth.TokenService
	Auth       *service.AuthService
	Profiles   *service.ProfileService
	Links      *service.LinkService
	Analytics  *service.AnalyticsService
	Public     *service.PublicService
	Dispatcher tasks.Dispatcher
	Redis      redis.UniversalClient
	Assets     AssetSigner
	Scanner    storage.Scanner
}

// RegisterRoutes 在 /api 下注册全部业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var counter loginCounter
	if deps.Redis != nil {
		counter = deps.Redis
	}
	guard := newLoginGuard(counter, logger, cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL)

	authHandler := NewAuthHandler(deps.Auth, guard)
	profileHandler := NewProfileHandler(deps.Profiles, deps.Analytics, newUploadReader(cfg.Uploads.MaxBytes, deps.Scanner))
	linkHandler := NewLinkHandler(deps.Links)
	publicHandler := NewPublicHandler(deps.Public, deps.Dispatcher)
	assetHandler := NewAssetHandler(deps.Assets)
	liveHandler := NewLiveHandler(deps.Redis, deps.Tokens, deps.Analytics, cfg.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(deps.Tokens)

	apiGroup := router.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/verify-email", authHandler.VerifyEmail)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
			authGroup.DELETE("/me", authMiddleware, authHandler.DeleteAccount)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		// 实时统计在首帧中鉴权，不经过 Bearer 中间件。
		apiGroup.GET("/me/profile/:id/analytics/live", liveHandler.Stream)

		profileGroup := apiGroup.Group("/me/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.List)
			profileGroup.POST("", profileHandler.Create)
			profileGroup.GET("/:id", profileHandler.Get)
			profileGroup.PUT("/:id", profileHandler.Update)
			profileGroup.DELETE("/:id", profileHandler.Delete)
			profileGroup.POST("/:id/slug", profileHandler.UpdateSlug)
			profileGroup.POST("/:id/avatar", profileHandler.UploadAvatar)
			profileGroup.POST("/:id/background-image", profileHandler.UploadBackground)
			profileGroup.DELETE("/:id/background-image", profileHandler.DeleteBackground)
			profileGroup.GET("/:id/analytics", profileHandler.Analytics)
		}

		linkGroup := apiGroup.Group("/me/links")
		linkGroup.Use(authMiddleware)
		{
			linkGroup.GET("/:profileId", linkHandler.List)
			linkGroup.POST("/:profileId", linkHandler.Create)
			linkGroup.PUT("/:profileId/reorder", linkHandler.Reorder)
			linkGroup.PUT("/:profileId/:linkId", linkHandler.Update)
			linkGroup.DELETE("/:profileId/:linkId", linkHandler.Delete)
		}

		publicGroup := apiGroup.Group("/public")
		{
			publicGroup.GET("/profile/:slug", publicHandler.Profile)
			publicGroup.GET("/themes", publicHandler.Themes)
			publicGroup.POST("/track/view", publicHandler.TrackView)
			publicGroup.POST("/track/click", publicHandler.TrackClick)
			publicGroup.GET("/assets/*key", assetHandler.Redirect)
		}
	}
}
