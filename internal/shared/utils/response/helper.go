package response

import (
	"net/http"

	"ticketing/internal/shared/apperr"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a taxonomy error onto its HTTP status
func RespondError(c *gin.Context, err error) {
	// the cause stays server side; request logging picks it up from c.Errors
	_ = c.Error(err)
	code := apperr.CodeOf(err)
	RespondJSON(c, "error", HTTPStatus(code), apperr.MessageOf(err), nil, ErrorBody{Code: string(code)})
}

// ErrorBody is the machine-readable part of an error response
type ErrorBody struct {
	Code string `json:"code"`
}

// HTTPStatus returns the HTTP status for an error code
func HTTPStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeSoldOut, apperr.CodeOverLimit, apperr.CodeSaleClosed, apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeProcessor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
