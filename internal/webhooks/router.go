package webhooks

import "github.com/gin-gonic/gin"

// SetupWebhookRoutes registers the processor callback; it is authenticated by
// signature, not by bearer token
func SetupWebhookRoutes(router *gin.RouterGroup, controller Controller) {
	router.POST("/webhooks/payments", controller.Receive) // POST /api/v1/webhooks/payments
}
