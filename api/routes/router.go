package routes

import (
	"net/http"
	"time"

	"ticketing/docs"
	"ticketing/internal/app"
	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/reconciler"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/webhooks"
	"ticketing/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router mounts every module's routes on one engine
type Router struct {
	app *app.App
}

func NewRouter(a *app.App) *Router {
	return &Router{app: a}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	docs.SwaggerInfo.BasePath = r.app.Config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/metrics", metrics.Handler())

	cfg := r.app.Config
	auth := middleware.JWTAuthWithConfig(cfg)

	api := engine.Group(cfg.GetAPIBasePath())
	{
		events.SetupEventRoutes(api, events.NewController(r.app.Events), auth)
		tiers.SetupTierRoutes(api, tiers.NewController(r.app.Tiers), auth)
		holds.SetupHoldRoutes(api, holds.NewController(r.app.Ledger), auth, cfg.Timeouts.Hold)
		orders.SetupOrderRoutes(api, orders.NewController(r.app.Coordinator), auth, cfg.Timeouts.Processor+cfg.Timeouts.Hold)
		tickets.SetupTicketRoutes(api, tickets.NewController(r.app.Tickets), auth)
		checkin.SetupCheckinRoutes(api, checkin.NewController(r.app.Scanner), auth, cfg.Timeouts.Scan)
		webhooks.SetupWebhookRoutes(api, webhooks.NewController(r.app.Webhooks))
		reconciler.SetupReconcileRoutes(api, reconciler.NewController(r.app.Reconciler), auth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.app.DB.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketing-engine",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketing-engine",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.app.Config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.app.Config.APIVersion,
			"reconciler":  r.app.Config.Reconciler.Enabled,
			"timestamp":   time.Now(),
		})
	})
}
