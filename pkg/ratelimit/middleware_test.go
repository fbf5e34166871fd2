package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                            RateLimitTypeHealth,
		"/ping":                              RateLimitTypeHealth,
		"/api/v1/webhooks/payments":          RateLimitTypeWebhook,
		"/api/v1/admin/reconcile":            RateLimitTypeAdmin,
		"/api/v1/admin/tickets/:id/checkins": RateLimitTypeAdmin,
		"/api/v1/scan":                       RateLimitTypeScan,
		"/api/v1/holds":                      RateLimitTypeHold,
		"/api/v1/holds/:id":                  RateLimitTypeHold,
		"/api/v1/orders/:id":                 RateLimitTypeOrder,
		"/api/v1/me/orders":                  RateLimitTypeOrder,
		"/api/v1/events/:id/tiers":           RateLimitTypePublic,
		"/api/v1/tiers/:id/availability":     RateLimitTypePublic,
		"/api/v1/me/tickets":                 RateLimitTypeDefault,
	}
	for path, want := range cases {
		if got := getRateLimitType(path); got != want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:4000", "203.0.113.7"},
		{"garbage forwarded falls through", map[string]string{"X-Forwarded-For": "nope", "X-Real-IP": "198.51.100.4"}, "10.0.0.2:4000", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.9:5555", "192.0.2.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			if got := getClientIP(c); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIsAllowed_BypassesRedis(t *testing.T) {
	cfg := &Config{
		Enabled:        true,
		WindowDuration: time.Minute,
		ScanRequests:   600,
		WhitelistedIPs: []string{"10.1.1.1"},
	}
	// a nil client proves the bypass paths never reach Redis
	limiter := NewRateLimiter(nil, cfg)

	res, err := limiter.IsAllowed(context.Background(), "10.1.1.1", RateLimitTypeScan)
	if err != nil || !res.Allowed || res.Limit != 600 {
		t.Fatalf("whitelisted ip: %+v, %v", res, err)
	}

	cfg.Enabled = false
	res, err = limiter.IsAllowed(context.Background(), "203.0.113.7", RateLimitTypeScan)
	if err != nil || !res.Allowed || res.Remaining != 600 {
		t.Fatalf("disabled limiter: %+v, %v", res, err)
	}
}
