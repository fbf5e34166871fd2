package webhooks_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/internal/testutil"
	"ticketing/internal/testutil/fakeprocessor"
	"ticketing/internal/webhooks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestHandler_SucceededReplayIssuesOnce(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 2)
	orderID := uuid.MustParse(result.Order.ID)

	payload, sig := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)
	for i := 0; i < 2; i++ {
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if o, _ := e.Store.Order(orderID); o.Status != orders.StatusPaid {
		t.Fatalf("order is %s, want paid", o.Status)
	}
	if n := len(e.Store.TicketsForTier(tier.ID)); n != 2 {
		t.Fatalf("issued %d tickets, want 2", n)
	}
	if n := len(e.Store.Deliveries()); n != 1 {
		t.Fatalf("recorded %d deliveries, want 1", n)
	}
}

func TestHandler_DistinctEventsForSameOutcomeAreIdempotent(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)

	for i := 0; i < 2; i++ {
		payload, sig := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if n := len(e.Store.TicketsForTier(tier.ID)); n != 1 {
		t.Fatalf("issued %d tickets, want 1", n)
	}
}

func TestHandler_FailedExpiresHoldImmediately(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	hold, result := e.StartPaidOrder(t, tier, uuid.New(), 1)

	for _, eventType := range []processor.EventType{processor.EventPaymentFailed, processor.EventPaymentCanceled} {
		payload, sig := e.Processor.Delivery(eventType, result.ClientParams.TxnID)
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("%s: %v", eventType, err)
		}
	}

	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusExpired {
		t.Fatalf("hold is %s, want expired", h.Status)
	}
	if o, _ := e.Store.Order(uuid.MustParse(result.Order.ID)); o.Status != orders.StatusPaymentFailed {
		t.Fatalf("order is %s, want payment_failed", o.Status)
	}
}

func TestHandler_Rejections(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)
	orderID := uuid.MustParse(result.Order.ID)

	t.Run("bad signature", func(t *testing.T) {
		payload, _ := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)
		err := e.Webhooks.Deliver(ctx, payload, "forged")
		if !errors.Is(err, processor.ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
		if len(e.Store.Deliveries()) != 0 {
			t.Fatalf("unverified delivery was recorded")
		}
	})

	t.Run("amount mismatch is ignored", func(t *testing.T) {
		payload, sig := fakeprocessor.Encode(processor.Event{
			ID: "evt_mismatch", Type: processor.EventPaymentSucceeded, TxnID: result.ClientParams.TxnID,
			Amount: 1, Currency: "usd",
		})
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("mismatch should be acknowledged, got %v", err)
		}
		if o, _ := e.Store.Order(orderID); o.Status != orders.StatusPaymentPending {
			t.Fatalf("mismatched amount changed the order to %s", o.Status)
		}
	})

	t.Run("unknown transaction is ignored", func(t *testing.T) {
		payload, sig := fakeprocessor.Encode(processor.Event{
			ID: "evt_stranger", Type: processor.EventPaymentSucceeded, TxnID: "pi_unknown", Amount: 4200, Currency: "usd",
		})
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("unknown order should be acknowledged, got %v", err)
		}
	})

	t.Run("unrecognized type is ignored", func(t *testing.T) {
		payload, sig := fakeprocessor.Encode(processor.Event{ID: "evt_other", Type: processor.EventUnknown, RawType: "charge.dispute.created"})
		if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
			t.Fatalf("unknown type should be acknowledged, got %v", err)
		}
	})
}

func TestHandler_MetadataFallbackAttachesTxn(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 900})
	requester := uuid.New()
	hold, err := e.Ledger.Reserve(ctx, tier.ID, requester, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// the order exists but storing the txn id failed after the processor call
	e.Store.FailNext("orders.AttachTxnID", errors.New("connection lost"))
	if _, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil); err == nil {
		t.Fatalf("expected start order to fail")
	}
	order, err := e.Repos.Orders.GetByHoldID(ctx, hold.ID)
	if err != nil || order.ProcessorTxnID != nil {
		t.Fatalf("order = %+v, %v; want pending without txn", order, err)
	}

	payload, sig := fakeprocessor.Encode(processor.Event{
		ID:       "evt_early",
		Type:     processor.EventPaymentSucceeded,
		TxnID:    "pi_fake_1",
		Amount:   900,
		Currency: "usd",
		Metadata: map[string]string{processor.MetaOrderID: order.ID.String()},
	})
	if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	stored, _ := e.Store.Order(order.ID)
	if stored.TxnID() != "pi_fake_1" || stored.Status != orders.StatusPaid {
		t.Fatalf("order = %+v; want paid with attached txn", stored)
	}
}

func TestHandler_StorageFailureAsksForRedelivery(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)
	payload, sig := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)

	e.Store.FailNext("tickets.CreateBatch", errors.New("disk full"))
	if err := e.Webhooks.Deliver(ctx, payload, sig); err == nil {
		t.Fatalf("expected an error so the processor redelivers")
	}
	if n := len(e.Store.TicketsForTier(tier.ID)); n != 0 {
		t.Fatalf("%d tickets issued by a failed delivery", n)
	}

	if err := e.Webhooks.Deliver(ctx, payload, sig); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if n := len(e.Store.TicketsForTier(tier.ID)); n != 1 {
		t.Fatalf("redelivery issued %d tickets, want 1", n)
	}
}

func TestController_Receive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 4200})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)

	router := gin.New()
	webhooks.SetupWebhookRoutes(router.Group("/api/v1"), webhooks.NewController(e.Webhooks))

	post := func(payload []byte, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", sig)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	payload, sig := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)
	if code := post(payload, "nope"); code != http.StatusBadRequest {
		t.Fatalf("forged signature: got %d, want 400", code)
	}
	if code := post(payload, sig); code != http.StatusOK {
		t.Fatalf("valid delivery: got %d, want 200", code)
	}

	e.Store.FailNext("webhooks.Record", errors.New("db down"))
	again, againSig := e.Processor.Delivery(processor.EventPaymentSucceeded, result.ClientParams.TxnID)
	if code := post(again, againSig); code != http.StatusInternalServerError {
		t.Fatalf("storage failure: got %d, want 500", code)
	}
}
