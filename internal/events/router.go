package events

import (
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	// Public routes - anyone can view events
	publicEvents := router.Group("/events")
	{
		publicEvents.GET("/:id", controller.GetEvent) // GET /api/v1/events/:id - Get event details
	}

	// Admin routes - only admins can create events
	adminEvents := router.Group("/admin/events")
	adminEvents.Use(auth, middleware.RequireAdmin())
	{
		adminEvents.POST("", controller.CreateEvent) // POST /api/v1/admin/events - Create event
	}
}
