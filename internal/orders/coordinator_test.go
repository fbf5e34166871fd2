package orders_test

import (
	"context"
	"errors"
	"testing"

	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/testutil"

	"github.com/google/uuid"
)

func TestCoordinator_FreeTier(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 0})
	requester := uuid.New()

	hold, err := e.Ledger.Reserve(ctx, tier.ID, requester, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	result, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, &tier.ID)
	if err != nil {
		t.Fatalf("start order: %v", err)
	}

	if result.Order != nil || result.ClientParams != nil {
		t.Fatalf("free tier must not create an order: %+v", result)
	}
	if len(result.FreeTickets) != 2 {
		t.Fatalf("got %d free tickets, want 2", len(result.FreeTickets))
	}
	if e.Processor.Creates != 0 {
		t.Fatalf("processor was called %d times", e.Processor.Creates)
	}
	if stored, _ := e.Store.Hold(hold.ID); stored.Status != holds.StatusConverted {
		t.Fatalf("hold is %s, want converted", stored.Status)
	}
	if e.Publisher.Count(notifications.EventTicketsIssued) != 1 {
		t.Fatalf("expected one tickets.issued event")
	}
}

func TestCoordinator_PaidTier(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 2500})
	requester := uuid.New()

	hold, result := e.StartPaidOrder(t, tier, requester, 2)

	if result.Order == nil || result.ClientParams == nil {
		t.Fatalf("paid tier must return an order and client params: %+v", result)
	}
	if result.Order.Status != orders.StatusPaymentPending || result.Order.Amount != 5000 {
		t.Fatalf("unexpected order %+v", result.Order)
	}
	if result.ClientParams.ClientSecret == "" || result.ClientParams.Amount != 5000 || result.ClientParams.Currency != "usd" {
		t.Fatalf("unexpected client params %+v", result.ClientParams)
	}

	orderID := uuid.MustParse(result.Order.ID)
	stored, _ := e.Store.Order(orderID)
	if stored.TxnID() != result.ClientParams.TxnID {
		t.Fatalf("txn id not stored: %q vs %q", stored.TxnID(), result.ClientParams.TxnID)
	}
	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusActive {
		t.Fatalf("hold should stay active until payment settles, got %s", h.Status)
	}

	t.Run("repeat call returns the same order", func(t *testing.T) {
		again, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil)
		if err != nil {
			t.Fatalf("repeat start: %v", err)
		}
		if again.Order.ID != result.Order.ID || again.ClientParams.TxnID != result.ClientParams.TxnID {
			t.Fatalf("repeat call created a new order or transaction")
		}
		if e.Processor.Creates != 1 {
			t.Fatalf("processor create called %d times, want 1", e.Processor.Creates)
		}
	})

	t.Run("timeline starts with creation", func(t *testing.T) {
		detail, err := e.Coordinator.GetOrder(ctx, requester, orderID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		if len(detail.Timeline) != 1 || detail.Timeline[0].Status != orders.StatusPaymentPending {
			t.Fatalf("unexpected timeline %+v", detail.Timeline)
		}
	})

	t.Run("only the owner can read it", func(t *testing.T) {
		if _, err := e.Coordinator.GetOrder(ctx, uuid.New(), orderID); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("listed for the owner", func(t *testing.T) {
		list, err := e.Coordinator.ListOrders(ctx, requester)
		if err != nil || len(list) != 1 {
			t.Fatalf("list = %v, %v", list, err)
		}
	})
}

func TestCoordinator_ProcessorFailureKeepsOrderPending(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1000})
	requester := uuid.New()
	hold, _ := e.Ledger.Reserve(ctx, tier.ID, requester, 1)

	e.Processor.CreateErr = errors.New("connection reset")
	_, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil)
	if !errors.Is(err, processor.ErrProcessor) {
		t.Fatalf("expected processor_error, got %v", err)
	}

	pending, err := e.Repos.Orders.GetByHoldID(ctx, hold.ID)
	if err != nil {
		t.Fatalf("order should exist after a processor failure: %v", err)
	}
	if pending.Status != orders.StatusPaymentPending || pending.ProcessorTxnID != nil {
		t.Fatalf("unexpected order %+v", pending)
	}

	e.Processor.CreateErr = nil
	result, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Order.ID != pending.ID.String() {
		t.Fatalf("retry created a second order")
	}
	if result.ClientParams.TxnID == "" {
		t.Fatalf("retry did not open a processor transaction")
	}
}

func TestCoordinator_ReleasedHoldCannotResume(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1000})
	requester := uuid.New()
	hold, first := e.StartPaidOrder(t, tier, requester, 1)

	if err := e.Ledger.Release(ctx, hold.ID, requester); err != nil {
		t.Fatalf("release: %v", err)
	}
	result, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil)
	if !errors.Is(err, holds.ErrHoldNotActive) {
		t.Fatalf("expected ErrHoldNotActive, got %v (%+v)", err, result)
	}
	if o, _ := e.Store.Order(uuid.MustParse(first.Order.ID)); o.Status != orders.StatusPaymentPending {
		t.Fatalf("order is %s, want payment_pending", o.Status)
	}
}

func TestCoordinator_Rejections(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1000})
	requester := uuid.New()
	hold, _ := e.Ledger.Reserve(ctx, tier.ID, requester, 1)

	t.Run("stranger", func(t *testing.T) {
		if _, err := e.Coordinator.StartOrder(ctx, uuid.New(), hold.ID, nil); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("tier mismatch", func(t *testing.T) {
		other := uuid.New()
		if _, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, &other); !errors.Is(err, orders.ErrTierMismatch) {
			t.Fatalf("expected ErrTierMismatch, got %v", err)
		}
	})

	t.Run("lapsed hold", func(t *testing.T) {
		e.Clock.Advance(holds.DefaultHoldTTL)
		if _, err := e.Coordinator.StartOrder(ctx, requester, hold.ID, nil); !errors.Is(err, holds.ErrHoldNotActive) {
			t.Fatalf("expected ErrHoldNotActive, got %v", err)
		}
	})
}
