package tiers

import (
	"net/http"

	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	ListTiers(c *gin.Context)
	CreateTier(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// ListTiers godoc
// @Summary List an event's ticket tiers
// @Tags tiers
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse
// @Router /events/{id}/tiers [get]
func (ctrl *controller) ListTiers(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	catalog, err := ctrl.service.ListCatalog(c.Request.Context(), eventID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tiers retrieved successfully", catalog, nil)
}

// CreateTier godoc
// @Summary Create a ticket tier
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param body body CreateTierRequest true "Tier"
// @Success 201 {object} response.StandardApiResponse
// @Router /admin/events/{id}/tiers [post]
func (ctrl *controller) CreateTier(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	var req CreateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	tier, err := ctrl.service.CreateTier(c.Request.Context(), eventID, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Tier created successfully", tier, nil)
}
