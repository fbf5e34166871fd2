package orders

import (
	"context"
	"net/http"

	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service is the part of the Coordinator exposed over HTTP
type Service interface {
	StartOrder(ctx context.Context, requesterID, holdID uuid.UUID, tierID *uuid.UUID) (*StartOrderResult, error)
	GetOrder(ctx context.Context, requesterID, orderID uuid.UUID) (*OrderDetail, error)
	ListOrders(ctx context.Context, requesterID uuid.UUID) ([]OrderResponse, error)
}

type Controller interface {
	StartOrder(c *gin.Context)
	GetOrder(c *gin.Context)
	MyOrders(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// StartOrder godoc
// @Summary Start checkout for a hold
// @Description Free tiers return tickets directly; paid tiers return processor client parameters
// @Tags orders
// @Accept json
// @Produce json
// @Param body body StartOrderRequest true "Hold to check out"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Failure 502 {object} response.StandardApiResponse
// @Router /orders [post]
func (ctrl *controller) StartOrder(c *gin.Context) {
	var req StartOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requesterID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	result, err := ctrl.service.StartOrder(c.Request.Context(), requesterID, req.HoldID, req.TierID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Order started", result, nil)
}

// GetOrder godoc
// @Summary Get an order with its timeline
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.StandardApiResponse
// @Router /orders/{id} [get]
func (ctrl *controller) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid order ID", nil, err.Error())
		return
	}

	requesterID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	detail, err := ctrl.service.GetOrder(c.Request.Context(), requesterID, orderID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Order retrieved", detail, nil)
}

// MyOrders godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Router /me/orders [get]
func (ctrl *controller) MyOrders(c *gin.Context) {
	requesterID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	list, err := ctrl.service.ListOrders(c.Request.Context(), requesterID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Orders retrieved", list, nil)
}
