package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/shared/apperr"

	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"sold out", apperr.New(apperr.CodeSoldOut, "sold out"), http.StatusConflict, "sold_out"},
		{"validation", apperr.New(apperr.CodeValidation, "bad"), http.StatusBadRequest, "validation_error"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"processor", apperr.New(apperr.CodeProcessor, "down"), http.StatusBadGateway, "processor_error"},
		{"plain error", errors.New("db gone"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tc.err)

			if w.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, w.Code)
			}
			var body struct {
				Status string `json:"status"`
				Errors struct {
					Code string `json:"code"`
				} `json:"errors"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != "error" || body.Errors.Code != tc.code {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}
