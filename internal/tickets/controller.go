package tickets

import (
	"net/http"

	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	MyTickets(c *gin.Context)
	Revoke(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// MyTickets godoc
// @Summary List the caller's tickets
// @Tags tickets
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Router /me/tickets [get]
func (ctrl *controller) MyTickets(c *gin.Context) {
	holderID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	views, err := ctrl.service.MyTickets(c.Request.Context(), holderID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tickets retrieved successfully", views, nil)
}

// Revoke godoc
// @Summary Revoke a ticket
// @Tags admin
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /admin/tickets/{id}/revoke [post]
func (ctrl *controller) Revoke(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid ticket ID", nil, err.Error())
		return
	}

	if err := ctrl.service.Revoke(c.Request.Context(), ticketID); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Ticket revoked", nil, nil)
}
