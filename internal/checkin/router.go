package checkin

import (
	"time"

	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCheckinRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc, timeout time.Duration) {
	router.POST("/scan", auth, middleware.RequireScanner(), middleware.Timeout(timeout), controller.Scan) // POST /api/v1/scan

	admin := router.Group("/admin/tickets")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.GET("/:id/checkins", controller.History) // GET /api/v1/admin/tickets/:id/checkins
	}
}
