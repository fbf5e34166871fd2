package holds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeService struct {
	reserveErr error
	released   []uuid.UUID
}

func (f *fakeService) Reserve(_ context.Context, tierID, requesterID uuid.UUID, quantity int) (*Hold, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	now := time.Now()
	return &Hold{ID: uuid.New(), TierID: tierID, RequesterID: requesterID, Quantity: quantity, Status: StatusActive, CreatedAt: now, ExpiresAt: now.Add(DefaultHoldTTL)}, nil
}

func (f *fakeService) Release(_ context.Context, holdID, _ uuid.UUID) error {
	f.released = append(f.released, holdID)
	return nil
}

func (f *fakeService) Availability(context.Context, uuid.UUID) (int, error) {
	return 7, nil
}

func newTestRouter(svc Service, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	auth := func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	}
	SetupHoldRoutes(engine.Group("/api/v1"), NewController(svc), auth, time.Second)
	return engine
}

func TestController_Reserve(t *testing.T) {
	userID := uuid.New()

	t.Run("created", func(t *testing.T) {
		router := newTestRouter(&fakeService{}, userID)
		body := `{"tier_id":"` + uuid.NewString() + `","quantity":2}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/holds", strings.NewReader(body)))

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Data HoldResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.HoldID == "" || resp.Data.ExpiresAt.IsZero() {
			t.Fatalf("missing hold_id/expires_at: %s", w.Body.String())
		}
	})

	t.Run("sold out maps to 409 with code", func(t *testing.T) {
		router := newTestRouter(&fakeService{reserveErr: ErrSoldOut}, userID)
		body := `{"tier_id":"` + uuid.NewString() + `","quantity":1}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/holds", strings.NewReader(body)))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		var resp struct {
			Errors response.ErrorBody `json:"errors"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Errors.Code != "sold_out" {
			t.Fatalf("expected sold_out code, got %q", resp.Errors.Code)
		}
	})

	t.Run("zero quantity is a bad request", func(t *testing.T) {
		router := newTestRouter(&fakeService{}, userID)
		body := `{"tier_id":"` + uuid.NewString() + `","quantity":0}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/holds", strings.NewReader(body)))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestController_ReleaseAndAvailability(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, uuid.New())
	holdID := uuid.New()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/holds/"+holdID.String(), nil))
	if w.Code != http.StatusOK || len(svc.released) != 1 || svc.released[0] != holdID {
		t.Fatalf("release: code=%d released=%v", w.Code, svc.released)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tiers/"+uuid.NewString()+"/availability", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"remaining":7`) {
		t.Fatalf("availability: code=%d body=%s", w.Code, w.Body.String())
	}
}
