package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/iot-notifier/internal/hub/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps.Health))

	notificationHandler := handler.NewNotificationHandler(deps)
	jobHandler := handler.NewJobHandler(deps)

	// Notifier callback
	r.POST("/notification", notificationHandler.ReceiveNotification)

	v1 := r.Group("/api/v1")
	{
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/:notification_id", notificationHandler.GetNotification)
		}

		v1.POST("/jobs", jobHandler.EnqueueJob)
	}

	return r
}

func healthHandler(checker handler.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			if err := checker.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "iot-hub",
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "iot-hub",
		})
	}
}
