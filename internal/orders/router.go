package orders

import (
	"time"

	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupOrderRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc, timeout time.Duration) {
	orders := router.Group("/orders")
	orders.Use(auth, middleware.Timeout(timeout))
	{
		orders.POST("", controller.StartOrder)  // POST /api/v1/orders - Start checkout
		orders.GET("/:id", controller.GetOrder) // GET /api/v1/orders/:id - Order with timeline
	}

	router.GET("/me/orders", auth, controller.MyOrders) // GET /api/v1/me/orders
}
