package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"ticketing/internal/processor"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const maxPayloadBytes = 64 << 10

const signatureHeader = "Stripe-Signature"

type Deliverer interface {
	Deliver(ctx context.Context, payload []byte, signatureHeader string) error
}

type Controller interface {
	Receive(c *gin.Context)
}

type controller struct {
	handler Deliverer
}

func NewController(handler Deliverer) Controller {
	return &controller{handler: handler}
}

// Receive godoc
// @Summary Payment processor webhook
// @Description Signature-verified, idempotent delivery endpoint
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.StandardApiResponse
// @Failure 500 {object} response.StandardApiResponse
// @Router /webhooks/payments [post]
func (ctrl *controller) Receive(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Unreadable payload", nil, err.Error())
		return
	}

	err = ctrl.handler.Deliver(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	switch {
	case err == nil:
		response.RespondJSON(c, "success", http.StatusOK, "Received", nil, nil)
	case errors.Is(err, processor.ErrInvalidSignature):
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid signature", nil, nil)
	default:
		if apperr.CodeOf(err) == apperr.CodeValidation {
			response.RespondError(c, err)
			return
		}
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Delivery not applied", nil, response.ErrorBody{Code: string(apperr.CodeOf(err))})
	}
}
