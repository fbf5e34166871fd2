// Package reconciler heals orders whose webhook never arrived and tidies
// lapsed holds and tickets of finished events.
package reconciler

import (
	"context"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
)

type Config struct {
	StaleOrderAfter  time.Duration
	BatchSize        int
	ProcessorTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		StaleOrderAfter:  2 * time.Hour,
		BatchSize:        100,
		ProcessorTimeout: 10 * time.Second,
	}
}

type Settler interface {
	ApplySucceeded(ctx context.Context, orderID uuid.UUID, note string) (*orders.Settlement, error)
	ApplyFailed(ctx context.Context, orderID uuid.UUID, note string) (*orders.Settlement, error)
}

type HoldSweeper interface {
	ListLapsed(ctx context.Context, limit int) ([]holds.Hold, error)
	Expire(ctx context.Context, holdID uuid.UUID) (bool, error)
}

type TicketExpirer interface {
	ExpireEnded(ctx context.Context) (int, error)
}

// Report counts what one sweep changed
type Report struct {
	OrdersChecked  int `json:"orders_checked"`
	OrdersPaid     int `json:"orders_paid"`
	OrdersFailed   int `json:"orders_failed"`
	OrdersRefunded int `json:"orders_refunded"`
	HoldsExpired   int `json:"holds_expired"`
	TicketsExpired int `json:"tickets_expired"`
	Errors         int `json:"errors"`
}

type Reconciler struct {
	orders    orders.Repository
	settler   Settler
	processor processor.Processor
	holds     HoldSweeper
	tickets   TicketExpirer
	clock     clock.Clock
	log       *logger.Logger
	cfg       Config
}

func New(orderRepo orders.Repository, settler Settler, p processor.Processor, holdSweeper HoldSweeper, ticketExpirer TicketExpirer, clk clock.Clock, log *logger.Logger, cfg Config) *Reconciler {
	def := DefaultConfig()
	if cfg.StaleOrderAfter <= 0 {
		cfg.StaleOrderAfter = def.StaleOrderAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.ProcessorTimeout <= 0 {
		cfg.ProcessorTimeout = def.ProcessorTimeout
	}
	return &Reconciler{
		orders:    orderRepo,
		settler:   settler,
		processor: p,
		holds:     holdSweeper,
		tickets:   ticketExpirer,
		clock:     clk,
		log:       log,
		cfg:       cfg,
	}
}

// Sweep runs one reconciliation pass. Failures on individual rows are
// counted and left for the next pass; only failing to list work is returned.
func (r *Reconciler) Sweep(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	stale, err := r.orders.ListStalePending(ctx, r.clock.Now().Add(-r.cfg.StaleOrderAfter), r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	for i := range stale {
		report.OrdersChecked++
		r.reconcileOrder(ctx, &stale[i], report)
	}

	lapsed, err := r.holds.ListLapsed(ctx, r.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	for i := range lapsed {
		expired, err := r.holds.Expire(ctx, lapsed[i].ID)
		if err != nil {
			report.Errors++
			r.log.WarnContext(ctx, "Hold Expiry Failed", "hold_id", lapsed[i].ID, "error", err)
			continue
		}
		if expired {
			report.HoldsExpired++
		}
	}

	ended, err := r.tickets.ExpireEnded(ctx)
	if err != nil {
		return nil, err
	}
	report.TicketsExpired = ended

	metrics.SweepTransition("order_paid", report.OrdersPaid)
	metrics.SweepTransition("order_failed", report.OrdersFailed)
	metrics.SweepTransition("order_refunded", report.OrdersRefunded)
	metrics.SweepTransition("hold_expired", report.HoldsExpired)
	metrics.SweepTransition("ticket_expired", report.TicketsExpired)
	r.log.LogSweep(ctx, map[string]interface{}{
		"orders_checked":  report.OrdersChecked,
		"orders_paid":     report.OrdersPaid,
		"orders_failed":   report.OrdersFailed,
		"orders_refunded": report.OrdersRefunded,
		"holds_expired":   report.HoldsExpired,
		"tickets_expired": report.TicketsExpired,
		"errors":          report.Errors,
	}, time.Since(start))
	return report, nil
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *orders.Order, report *Report) {
	if err := r.orders.MarkReconcileAttempt(ctx, order.ID, r.clock.Now()); err != nil {
		r.log.WarnContext(ctx, "Reconcile Stamp Failed", "order_id", order.ID, "error", err)
	}
	if order.ProcessorTxnID == nil {
		r.fail(ctx, order, "no processor transaction", report)
		return
	}

	pctx, cancel := context.WithTimeout(ctx, r.cfg.ProcessorTimeout)
	payment, err := r.processor.GetPayment(pctx, *order.ProcessorTxnID)
	cancel()
	if err != nil {
		report.Errors++
		r.log.WarnContext(ctx, "Processor Lookup Failed", "order_id", order.ID, "txn_id", *order.ProcessorTxnID, "error", err)
		return
	}

	switch payment.Status {
	case processor.StatusSucceeded:
		if !order.MatchesPayment(payment.Amount, payment.Currency) {
			report.Errors++
			r.log.ErrorContext(ctx, "Reconcile Amount Mismatch",
				"order_id", order.ID,
				"txn_id", payment.TxnID,
				"expected_amount", order.Amount,
				"expected_currency", order.Currency,
				"amount", payment.Amount,
				"currency", payment.Currency,
			)
			return
		}
		settlement, err := r.settler.ApplySucceeded(ctx, order.ID, "reconciled: payment succeeded")
		if err != nil {
			report.Errors++
			r.log.WarnContext(ctx, "Reconcile Success Failed", "order_id", order.ID, "error", err)
			return
		}
		if settlement.Applied {
			if settlement.Order.Status == orders.StatusRefunded {
				report.OrdersRefunded++
			} else {
				report.OrdersPaid++
			}
		}
	case processor.StatusFailed:
		r.fail(ctx, order, "reconciled: payment failed", report)
	case processor.StatusCanceled:
		r.fail(ctx, order, "reconciled: payment canceled", report)
	default:
		pctx, cancel := context.WithTimeout(ctx, r.cfg.ProcessorTimeout)
		err := r.processor.CancelPayment(pctx, *order.ProcessorTxnID)
		cancel()
		if err != nil {
			report.Errors++
			r.log.WarnContext(ctx, "Abandoned Payment Cancel Failed", "order_id", order.ID, "error", err)
			return
		}
		r.fail(ctx, order, "reconciled: abandoned payment canceled", report)
	}
}

func (r *Reconciler) fail(ctx context.Context, order *orders.Order, note string, report *Report) {
	settlement, err := r.settler.ApplyFailed(ctx, order.ID, note)
	if err != nil {
		report.Errors++
		r.log.WarnContext(ctx, "Reconcile Failure Failed", "order_id", order.ID, "error", err)
		return
	}
	if settlement.Applied {
		report.OrdersFailed++
	}
}
