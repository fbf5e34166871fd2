package holds

import (
	"time"

	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupHoldRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc, timeout time.Duration) {
	router.GET("/tiers/:id/availability", controller.Availability) // GET /api/v1/tiers/:id/availability

	holds := router.Group("/holds")
	holds.Use(auth, middleware.Timeout(timeout))
	{
		holds.POST("", controller.Reserve)       // POST /api/v1/holds - Reserve tickets
		holds.DELETE("/:id", controller.Release) // DELETE /api/v1/holds/:id - Abandon hold
	}
}
