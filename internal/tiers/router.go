package tiers

import (
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTierRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	router.GET("/events/:id/tiers", controller.ListTiers) // GET /api/v1/events/:id/tiers - Tier catalog

	admin := router.Group("/admin/events")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/:id/tiers", controller.CreateTier) // POST /api/v1/admin/events/:id/tiers - Create tier
	}
}
