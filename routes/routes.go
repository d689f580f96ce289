// routes/routes.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/natek434/gardenit/controllers"
	"github.com/natek434/gardenit/middleware"
	"github.com/natek434/gardenit/repositories"
	"github.com/natek434/gardenit/services"
	"github.com/natek434/gardenit/utils"
)

// Dependencies are the shared components the HTTP surface needs. The
// services are built once in main and shared with the engine worker.
type Dependencies struct {
	DB          *mongo.Database
	Redis       *redis.Client
	JWTService  *utils.JWTService
	UserRepo    *repositories.UserRepository
	RuleService *services.RuleService
	Notifier    *services.NotificationService
}

// SetupRoutes initializes all application routes
func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()

	validator := utils.NewValidationService()

	ruleController := controllers.NewRuleController(deps.RuleService, validator)
	notificationController := controllers.NewNotificationController(deps.Notifier)

	// Global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	router.GET("/health", healthHandler(deps.DB, deps.Redis))

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTService, deps.UserRepo)

	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		rules := api.Group("/rules")
		{
			rules.GET("", ruleController.ListRules)
			rules.POST("", ruleController.CreateRule)
			rules.GET("/:id", ruleController.GetRule)
			rules.PATCH("/:id", ruleController.UpdateRule)
			rules.DELETE("/:id", ruleController.DeleteRule)
			rules.POST("/:id/enable", ruleController.EnableRule)
			rules.POST("/:id/disable", ruleController.DisableRule)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationController.ListNotifications)
			notifications.GET("/unread", notificationController.CountUnread)
			notifications.POST("/:id/read", notificationController.MarkRead)
			notifications.POST("/:id/clear", notificationController.MarkCleared)
		}
	}

	return router
}

// healthHandler pings both backing stores so an orchestrator can tell
// a wedged instance from a healthy one.
func healthHandler(db *mongo.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"mongodb": "ok", "redis": "ok"}

		if db != nil {
			if err := db.Client().Ping(ctx, nil); err != nil {
				checks["mongodb"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		} else {
			checks["redis"] = "disabled"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status": overall,
			"checks": checks,
			"time":   time.Now().UTC(),
		})
	}
}
