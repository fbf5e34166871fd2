package holds

import (
	"context"
	"net/http"

	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service is the part of the Ledger exposed over HTTP
type Service interface {
	Reserve(ctx context.Context, tierID, requesterID uuid.UUID, quantity int) (*Hold, error)
	Release(ctx context.Context, holdID, requesterID uuid.UUID) error
	Availability(ctx context.Context, tierID uuid.UUID) (int, error)
}

type Controller interface {
	Reserve(c *gin.Context)
	Release(c *gin.Context)
	Availability(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// Reserve godoc
// @Summary Reserve tickets
// @Tags holds
// @Accept json
// @Produce json
// @Param body body ReserveRequest true "Reservation"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /holds [post]
func (ctrl *controller) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requesterID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	hold, err := ctrl.service.Reserve(c.Request.Context(), req.TierID, requesterID, req.Quantity)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Hold created", hold.ToResponse(), nil)
}

// Release godoc
// @Summary Abandon a hold
// @Tags holds
// @Produce json
// @Param id path string true "Hold ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /holds/{id} [delete]
func (ctrl *controller) Release(c *gin.Context) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid hold ID", nil, err.Error())
		return
	}

	requesterID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	if err := ctrl.service.Release(c.Request.Context(), holdID, requesterID); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Hold released", nil, nil)
}

// Availability godoc
// @Summary Remaining capacity of a tier
// @Tags tiers
// @Produce json
// @Param id path string true "Tier ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /tiers/{id}/availability [get]
func (ctrl *controller) Availability(c *gin.Context) {
	tierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid tier ID", nil, err.Error())
		return
	}

	remaining, err := ctrl.service.Availability(c.Request.Context(), tierID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Availability retrieved", AvailabilityResponse{
		TierID:    tierID.String(),
		Remaining: remaining,
	}, nil)
}
