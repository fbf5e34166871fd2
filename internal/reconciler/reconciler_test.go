package reconciler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/internal/reconciler"
	"ticketing/internal/testutil"

	"github.com/google/uuid"
)

const staleness = 2 * time.Hour

func TestSweep_LostWebhookIssuesTickets(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 3000})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 2)
	orderID := uuid.MustParse(result.Order.ID)
	e.Processor.SetStatus(result.ClientParams.TxnID, processor.StatusSucceeded)

	e.Clock.Advance(time.Hour)
	report, err := e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.OrdersChecked != 0 {
		t.Fatalf("order younger than the threshold was checked")
	}

	e.Clock.Advance(staleness)
	report, err = e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.OrdersPaid != 1 {
		t.Fatalf("report = %+v, want one paid order", report)
	}
	if o, _ := e.Store.Order(orderID); o.Status != orders.StatusPaid {
		t.Fatalf("order is %s, want paid", o.Status)
	}
	issued := e.Store.TicketsForTier(tier.ID)
	if len(issued) != 2 || issued[0].OrderID == nil || *issued[0].OrderID != orderID {
		t.Fatalf("unexpected tickets %+v", issued)
	}
	for _, ticket := range issued {
		if !e.Signer.Verify(ticket.Token).Valid {
			t.Fatalf("reconciled ticket token does not verify")
		}
	}

	again, err := e.Reconciler.Sweep(ctx)
	if err != nil || again.OrdersChecked != 0 || again.OrdersPaid != 0 {
		t.Fatalf("second sweep = %+v, %v; want no work", again, err)
	}
}

func TestSweep_StaleOrderOutcomes(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 3000, QuantityTotal: 20})

	_, failed := e.StartPaidOrder(t, tier, uuid.New(), 1)
	e.Processor.SetStatus(failed.ClientParams.TxnID, processor.StatusFailed)

	_, abandoned := e.StartPaidOrder(t, tier, uuid.New(), 1)

	requester := uuid.New()
	orphanHold, _ := e.Ledger.Reserve(ctx, tier.ID, requester, 1)
	e.Processor.CreateErr = errors.New("timeout")
	_, _ = e.Coordinator.StartOrder(ctx, requester, orphanHold.ID, nil)
	e.Processor.CreateErr = nil
	orphan, err := e.Repos.Orders.GetByHoldID(ctx, orphanHold.ID)
	if err != nil {
		t.Fatalf("orphan order: %v", err)
	}

	e.Clock.Advance(staleness)
	report, err := e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.OrdersChecked != 3 || report.OrdersFailed != 3 {
		t.Fatalf("report = %+v, want three failed orders", report)
	}

	for _, id := range []string{failed.Order.ID, abandoned.Order.ID, orphan.ID.String()} {
		if o, _ := e.Store.Order(uuid.MustParse(id)); o.Status != orders.StatusPaymentFailed {
			t.Fatalf("order %s is %s, want payment_failed", id, o.Status)
		}
	}
	canceled := e.Processor.Canceled()
	if len(canceled) != 1 || canceled[0] != abandoned.ClientParams.TxnID {
		t.Fatalf("abandoned payment not canceled: %v", canceled)
	}
}

func TestSweep_CancelFailureIsRetriedNextPass(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 3000})
	_, abandoned := e.StartPaidOrder(t, tier, uuid.New(), 1)
	e.Clock.Advance(staleness)

	e.Processor.CancelErr = errors.New("unavailable")
	report, err := e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Errors != 1 || report.OrdersFailed != 0 {
		t.Fatalf("report = %+v", report)
	}

	e.Processor.CancelErr = nil
	report, _ = e.Reconciler.Sweep(ctx)
	if report.OrdersFailed != 1 {
		t.Fatalf("retry report = %+v", report)
	}
	if o, _ := e.Store.Order(uuid.MustParse(abandoned.Order.ID)); o.Status != orders.StatusPaymentFailed {
		t.Fatalf("order is %s", o.Status)
	}
}

func TestSweep_AmountMismatchIsNotSettled(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 3000})
	_, result := e.StartPaidOrder(t, tier, uuid.New(), 1)
	txn := result.ClientParams.TxnID
	e.Processor.SetStatus(txn, processor.StatusSucceeded)
	e.Processor.SetAmount(txn, 1, result.ClientParams.Currency)

	e.Clock.Advance(staleness + time.Hour)
	report, err := e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.OrdersChecked != 1 || report.OrdersPaid != 0 || report.Errors != 1 {
		t.Fatalf("report = %+v, want one unsettled error", report)
	}
	if o, _ := e.Store.Order(uuid.MustParse(result.Order.ID)); o.Status != orders.StatusPaymentPending {
		t.Fatalf("order is %s, want payment_pending", o.Status)
	}
	if issued := e.Store.TicketsForTier(tier.ID); len(issued) != 0 {
		t.Fatalf("tickets issued for a mismatched payment: %+v", issued)
	}
}

func TestSweep_StuckOrderDoesNotStarveOthers(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{UnitPrice: 3000})
	r := reconciler.New(e.Repos.Orders, e.Settler, e.Processor, e.Ledger, e.Tickets, e.Clock, e.Log, reconciler.Config{BatchSize: 1})

	_, stuck := e.StartPaidOrder(t, tier, uuid.New(), 1)
	e.Processor.FailCancel(stuck.ClientParams.TxnID, errors.New("payment is processing"))
	e.Clock.Advance(time.Minute)
	_, healed := e.StartPaidOrder(t, tier, uuid.New(), 1)
	e.Processor.SetStatus(healed.ClientParams.TxnID, processor.StatusSucceeded)
	e.Clock.Advance(staleness)

	first, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if first.OrdersChecked != 1 || first.Errors != 1 {
		t.Fatalf("first report = %+v, want the stuck order to fail", first)
	}

	second, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if second.OrdersPaid != 1 {
		t.Fatalf("second report = %+v, want the newer order paid", second)
	}
	if o, _ := e.Store.Order(uuid.MustParse(healed.Order.ID)); o.Status != orders.StatusPaid {
		t.Fatalf("newer order is %s, want paid", o.Status)
	}
	if o, _ := e.Store.Order(uuid.MustParse(stuck.Order.ID)); o.Status != orders.StatusPaymentPending {
		t.Fatalf("stuck order is %s, want payment_pending", o.Status)
	}
}

func TestSweep_ExpiresLapsedHoldsAndEndedTickets(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{})
	lapsed, _ := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), 1)
	e.IssueFree(t, tier, uuid.New(), 2)

	e.Clock.Advance(holds.DefaultHoldTTL)
	report, err := e.Reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.HoldsExpired != 1 || report.TicketsExpired != 0 {
		t.Fatalf("report = %+v", report)
	}
	if h, _ := e.Store.Hold(lapsed.ID); h.Status != holds.StatusExpired {
		t.Fatalf("hold is %s, want expired", h.Status)
	}

	e.Clock.Advance(30 * time.Hour)
	report, _ = e.Reconciler.Sweep(ctx)
	if report.TicketsExpired != 2 {
		t.Fatalf("report = %+v, want two expired tickets", report)
	}
}

func TestJobProcessor_RunOnce(t *testing.T) {
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{})
	hold, _ := e.Ledger.Reserve(context.Background(), tier.ID, uuid.New(), 1)
	e.Clock.Advance(holds.DefaultHoldTTL)

	jp := reconciler.NewJobProcessor(e.Reconciler, time.Hour, e.Log)
	jp.RunOnce(context.Background())

	if h, _ := e.Store.Hold(hold.ID); h.Status != holds.StatusExpired {
		t.Fatalf("hold is %s after RunOnce", h.Status)
	}
}

func TestJobProcessor_StopTwice(t *testing.T) {
	e := testutil.NewEngine(t)
	jp := reconciler.NewJobProcessor(e.Reconciler, time.Hour, e.Log)
	jp.Start(context.Background())

	jp.Stop()
	jp.Stop()
}
