package reconciler

import (
	"net/http"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	Sweep(c *gin.Context)
}

type controller struct {
	reconciler *Reconciler
}

func NewController(r *Reconciler) Controller {
	return &controller{reconciler: r}
}

// Sweep godoc
// @Summary Run a reconciliation sweep now
// @Tags admin
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Router /admin/reconcile [post]
func (ctrl *controller) Sweep(c *gin.Context) {
	report, err := ctrl.reconciler.Sweep(c.Request.Context())
	if err != nil {
		response.RespondError(c, apperr.Internal("sweep failed", err))
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Sweep completed", report, nil)
}

func SetupReconcileRoutes(router *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	router.POST("/admin/reconcile", auth, middleware.RequireAdmin(), controller.Sweep) // POST /api/v1/admin/reconcile
}
