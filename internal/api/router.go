package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"linkpage/internal/api/middleware"
	"linkpage/internal/config"
	"linkpage/internal/errcode"
	"linkpage/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎：全局中间件、健康检查与 Prometheus 指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) (*gin.Engine, error) {
	registerValidators()

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.API.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			middleware.LoggerFromContext(c).Error("panic recovered", slog.Any("panic", recovered))
			middleware.Abort(c, errcode.ErrInternal)
		}),
		metrics.HTTPMiddleware("/health", "/metrics"),
	)
	if len(cfg.API.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.API.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"},
			ExposeHeaders:    []string{"X-Correlation-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(middleware.ErrorHandler())

	router.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, errcode.ErrNotFound.WithMessage("Route not found"))
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	return router, nil
}
