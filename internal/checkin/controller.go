package checkin

import (
	"context"
	"net/http"

	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Service interface {
	Scan(ctx context.Context, token, scannerID string) (*ScanResult, error)
	History(ctx context.Context, ticketID uuid.UUID) ([]Checkin, error)
}

type Controller interface {
	Scan(c *gin.Context)
	History(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// Scan godoc
// @Summary Redeem a ticket at the door
// @Description Always 200 with a typed outcome unless the audit row cannot be written
// @Tags checkin
// @Accept json
// @Produce json
// @Param body body ScanRequest true "Scanned token"
// @Success 200 {object} response.StandardApiResponse
// @Failure 500 {object} response.StandardApiResponse
// @Router /scan [post]
func (ctrl *controller) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	scannerID := req.ScannerID
	if scannerID == "" {
		scannerID = c.GetString("user_id")
	}

	result, err := ctrl.service.Scan(c.Request.Context(), req.Token, scannerID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Scan processed", result, nil)
}

// History godoc
// @Summary Check-in audit trail of a ticket
// @Tags checkin
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /admin/tickets/{id}/checkins [get]
func (ctrl *controller) History(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid ticket ID", nil, err.Error())
		return
	}

	rows, err := ctrl.service.History(c.Request.Context(), ticketID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Check-in history retrieved", rows, nil)
}
