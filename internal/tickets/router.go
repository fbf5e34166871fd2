package tickets

import (
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTicketRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	me := router.Group("/me")
	me.Use(auth)
	{
		me.GET("/tickets", controller.MyTickets) // GET /api/v1/me/tickets - Holder wallet
	}

	admin := router.Group("/admin/tickets")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/:id/revoke", controller.Revoke) // POST /api/v1/admin/tickets/:id/revoke
	}
}
