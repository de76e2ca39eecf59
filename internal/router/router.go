package router

import (
	"fmt"
	"strings"

	"github.com/vrl-pickup/internal/cache"
	"github.com/vrl-pickup/internal/config"
	adminhandlers "github.com/vrl-pickup/internal/http/handlers/admin"
	publichandlers "github.com/vrl-pickup/internal/http/handlers/public"
	"github.com/vrl-pickup/internal/logger"
	"github.com/vrl-pickup/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "vrl"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	submitRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:pickup_submit", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts * 2,
		Message:       "too many pickup requests",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 客户侧接口
		pickups := apiV1.Group("/pickups")
		{
			pickups.POST("", RateLimitMiddleware(redisClient, submitRule, KeyByIPAndJSONField("email")), publicHandler.CreatePickup)
			pickups.GET("/:id", publicHandler.GetPickup)
		}

		// 管理端接口
		adminGroup := apiV1.Group("/admin")
		{
			adminGroup.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			authed := adminGroup.Group("")
			authed.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authed.GET("/me", adminHandler.GetCurrentAdmin)
				authed.PUT("/me/password", adminHandler.ChangeAdminPassword)

				authed.GET("/pickups", adminHandler.AdminListPickups)
				authed.GET("/pickups/stats", adminHandler.AdminGetPickupStats)
				authed.POST("/pickups/status", adminHandler.AdminBulkUpdatePickupStatus)
				authed.GET("/pickups/:id", adminHandler.AdminGetPickup)
				authed.GET("/pickups/:id/history", adminHandler.AdminGetPickupHistory)
				authed.GET("/pickups/:id/invoice", adminHandler.AdminGetPickupInvoice)
				authed.POST("/pickups/:id/status", adminHandler.AdminUpdatePickupStatus)
				authed.POST("/pickups/:id/notify", adminHandler.AdminResendPickupNotification)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
