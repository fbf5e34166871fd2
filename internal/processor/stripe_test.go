package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"ticketing/pkg/logger"
)

const testWebhookSecret = "whsec_test_secret"

func signStripePayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripe_ParseWebhook(t *testing.T) {
	s := NewStripe("sk_test_unused", testWebhookSecret, logger.NewDiscard())

	succeeded := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_123",
			"object": "payment_intent",
			"amount": 5000,
			"currency": "usd",
			"metadata": {"order_id": "6f1c3a8e-3f57-4a55-9d2b-2f5b8e0a1c11"}
		}}
	}`)

	t.Run("valid signature decodes intent", func(t *testing.T) {
		evt, err := s.ParseWebhook(succeeded, signStripePayload(succeeded, testWebhookSecret, time.Now()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if evt.Type != EventPaymentSucceeded || evt.TxnID != "pi_123" || evt.Amount != 5000 {
			t.Fatalf("unexpected event %+v", evt)
		}
		if _, ok := evt.OrderID(); !ok {
			t.Fatalf("expected order id in metadata")
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		_, err := s.ParseWebhook(succeeded, signStripePayload(succeeded, "whsec_other", time.Now()))
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		header := signStripePayload(succeeded, testWebhookSecret, time.Now())
		tampered := append([]byte{}, succeeded...)
		tampered[len(tampered)-3] = ' '
		if _, err := s.ParseWebhook(tampered, header); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("failure message is carried", func(t *testing.T) {
		failed := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.payment_failed",
			"data":{"object":{"id":"pi_9","object":"payment_intent","amount":100,"currency":"usd",
			"last_payment_error":{"message":"card declined"}}}}`)
		evt, err := s.ParseWebhook(failed, signStripePayload(failed, testWebhookSecret, time.Now()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if evt.Type != EventPaymentFailed || evt.FailureMessage != "card declined" {
			t.Fatalf("unexpected event %+v", evt)
		}
	})

	t.Run("unrelated types map to unknown", func(t *testing.T) {
		other := []byte(`{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
		evt, err := s.ParseWebhook(other, signStripePayload(other, testWebhookSecret, time.Now()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if evt.Type != EventUnknown || evt.RawType != "customer.created" {
			t.Fatalf("unexpected event %+v", evt)
		}
	})
}
