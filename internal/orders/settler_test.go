package orders_test

import (
	"context"
	"errors"
	"testing"

	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/orders"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/testutil"

	"github.com/google/uuid"
)

func TestSettler_ApplySucceeded(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1500})
	hold, result := e.StartPaidOrder(t, tier, uuid.New(), 3)
	orderID := uuid.MustParse(result.Order.ID)

	settlement, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !settlement.Applied || len(settlement.Tickets) != 3 || settlement.Order.Status != orders.StatusPaid {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusConverted {
		t.Fatalf("hold is %s, want converted", h.Status)
	}

	again, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.Applied {
		t.Fatalf("replay must be a no-op")
	}
	if n := len(e.Store.TicketsForTier(tier.ID)); n != 3 {
		t.Fatalf("stored %d tickets after replay, want 3", n)
	}
	if e.Publisher.Count(notifications.EventOrderPaid) != 1 {
		t.Fatalf("order.paid published %d times", e.Publisher.Count(notifications.EventOrderPaid))
	}

	detail, _ := e.Coordinator.GetOrder(ctx, settlement.Order.RequesterID, orderID)
	if len(detail.Tickets) != 3 || len(detail.Timeline) != 2 || detail.Timeline[1].Status != orders.StatusPaid {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestSettler_PartialFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1500})
	hold, result := e.StartPaidOrder(t, tier, uuid.New(), 2)
	orderID := uuid.MustParse(result.Order.ID)

	e.Store.FailNext("orders.UpdateStatus", errors.New("connection lost"))
	if _, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded"); apperr.CodeOf(err) != apperr.CodeInternal {
		t.Fatalf("expected internal_error, got %v", err)
	}

	if n := len(e.Store.TicketsForTier(tier.ID)); n != 0 {
		t.Fatalf("%d tickets survived the rollback", n)
	}
	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusActive {
		t.Fatalf("hold is %s after rollback, want active", h.Status)
	}
	if o, _ := e.Store.Order(orderID); o.Status != orders.StatusPaymentPending {
		t.Fatalf("order is %s after rollback", o.Status)
	}

	settlement, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil || !settlement.Applied || len(settlement.Tickets) != 2 {
		t.Fatalf("retry after rollback = %+v, %v", settlement, err)
	}
}

func TestSettler_LapsedHoldIsReacquired(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1500, QuantityTotal: 2})
	hold, result := e.StartPaidOrder(t, tier, uuid.New(), 2)
	orderID := uuid.MustParse(result.Order.ID)

	e.Clock.Advance(holds.DefaultHoldTTL + 1)

	settlement, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !settlement.Applied || settlement.Order.HoldID == hold.ID || len(settlement.Tickets) != 2 {
		t.Fatalf("expected a replacement hold with tickets, got %+v", settlement)
	}
	old, _ := e.Store.Hold(hold.ID)
	if old.ReplacedBy == nil || *old.ReplacedBy != settlement.Order.HoldID {
		t.Fatalf("old hold not linked to replacement: %+v", old)
	}
}

func TestSettler_SoldOutAfterLapseRefunds(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1500, QuantityTotal: 1})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)
	orderID := uuid.MustParse(result.Order.ID)

	e.Clock.Advance(holds.DefaultHoldTTL)
	if _, err := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), 1); err != nil {
		t.Fatalf("rival reserve: %v", err)
	}

	settlement, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if settlement.Order.Status != orders.StatusRefunded || len(settlement.Tickets) != 0 {
		t.Fatalf("expected refunded order without tickets, got %+v", settlement)
	}
	refunds := e.Processor.Refunds()
	if refunds["refund-"+orderID.String()] != result.ClientParams.TxnID {
		t.Fatalf("refund not issued with the order key: %v", refunds)
	}

	again, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded")
	if err != nil || again.Applied {
		t.Fatalf("refunded order must be terminal: %+v, %v", again, err)
	}
}

func TestSettler_ApplyFailed(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 1500, QuantityTotal: 2})
	hold, result := e.StartPaidOrder(t, tier, uuid.New(), 2)
	orderID := uuid.MustParse(result.Order.ID)

	settlement, err := e.Settler.ApplyFailed(ctx, orderID, "card declined")
	if err != nil || !settlement.Applied || settlement.Order.Status != orders.StatusPaymentFailed {
		t.Fatalf("apply failed = %+v, %v", settlement, err)
	}
	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusExpired {
		t.Fatalf("hold is %s, want expired", h.Status)
	}
	if remaining, _ := e.Ledger.Availability(ctx, tier.ID); remaining != 2 {
		t.Fatalf("failed payment should release capacity, remaining = %d", remaining)
	}

	again, err := e.Settler.ApplyFailed(ctx, orderID, "card declined")
	if err != nil || again.Applied {
		t.Fatalf("second failure must be a no-op: %+v, %v", again, err)
	}

	t.Run("late success after failure still pays", func(t *testing.T) {
		settlement, err := e.Settler.ApplySucceeded(ctx, orderID, "payment succeeded on retry")
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if settlement.Order.Status != orders.StatusPaid || len(settlement.Tickets) != 2 {
			t.Fatalf("unexpected settlement %+v", settlement)
		}
	})

	t.Run("paid order ignores a stale failure", func(t *testing.T) {
		again, err := e.Settler.ApplyFailed(ctx, orderID, "late failure")
		if err != nil || again.Applied || again.Order.Status != orders.StatusPaid {
			t.Fatalf("stale failure changed a paid order: %+v, %v", again, err)
		}
	})
}

func TestSettler_UnknownOrder(t *testing.T) {
	e := testutil.NewEngine(t)
	if _, err := e.Settler.ApplySucceeded(context.Background(), uuid.New(), ""); !errors.Is(err, orders.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
