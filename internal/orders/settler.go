package orders

import (
	"context"
	"errors"

	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/processor"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/tickets"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Settlement describes what applying a processor outcome did
type Settlement struct {
	Order   *Order
	Applied bool
	From    Status
	Tickets []tickets.Ticket
}

// Settler applies processor outcomes to orders. Both the webhook handler and
// the reconciler go through it, so an outcome is only ever applied once.
type Settler struct {
	Dependencies
}

func NewSettler(deps Dependencies) *Settler {
	if deps.ProcessorTimeout <= 0 {
		deps.ProcessorTimeout = DefaultProcessorTimeout
	}
	if deps.Publisher == nil {
		deps.Publisher = notifications.NopPublisher{}
	}
	return &Settler{Dependencies: deps}
}

var errReacquireSoldOut = errors.New("replacement hold sold out")

// ApplySucceeded marks an order paid and issues its tickets in one
// transaction. A hold that lapsed first is reacquired; when inventory is gone
// the payment is refunded instead.
func (s *Settler) ApplySucceeded(ctx context.Context, orderID uuid.UUID, note string) (*Settlement, error) {
	result := &Settlement{}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		result.Order = order
		result.From = order.Status
		if order.Status.IsTerminal() {
			return nil
		}

		hold, err := s.Ledger.Convert(ctx, order.HoldID)
		switch {
		case err == nil:
		case errors.Is(err, holds.ErrHoldNotActive):
			hold, err = s.Ledger.Reacquire(ctx, order.HoldID)
			if errors.Is(err, holds.ErrSoldOut) {
				return errReacquireSoldOut
			}
			if err != nil {
				return err
			}
			if hold.ID != order.HoldID {
				now := s.Clock.Now()
				if err := s.Orders.SetHoldID(ctx, order.ID, hold.ID, now); err != nil {
					return apperr.Internal("failed to rebind order hold", err)
				}
				if err := s.Orders.AppendTimeline(ctx, &TimelineEntry{
					OrderID: order.ID,
					At:      now,
					Status:  order.Status,
					Note:    "hold lapsed before payment settled; inventory reacquired",
				}); err != nil {
					return apperr.Internal("failed to append order timeline", err)
				}
				order.HoldID = hold.ID
			}
		default:
			return err
		}

		issued, err := s.Issuer.Issue(ctx, hold, &order.ID)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, order, []Status{StatusPaymentPending, StatusPaymentFailed}, StatusPaid, note); err != nil {
			return err
		}
		result.Applied = true
		result.Tickets = issued
		return nil
	})

	if errors.Is(err, errReacquireSoldOut) {
		return s.refund(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		return result, nil
	}

	order := result.Order
	now := s.Clock.Now()
	metrics.OrderTransition(string(StatusPaid))
	metrics.TicketsIssued(len(result.Tickets))
	s.Log.LogOrderTransition(ctx, order.ID.String(), string(result.From), string(StatusPaid), note)
	s.Log.LogTicketsIssued(ctx, order.HoldID.String(), order.ID.String(), len(result.Tickets))
	s.Publisher.Publish(ctx, notifications.NewLifecycleEvent(notifications.EventOrderPaid, order.ID.String(), order.RequesterID.String(), now, map[string]interface{}{
		"amount":   order.Amount,
		"currency": order.Currency,
		"txn_id":   order.TxnID(),
	}))
	s.Publisher.Publish(ctx, ticketsIssuedEvent(order.HoldID, &order.ID, order.RequesterID, result.Tickets, now))
	return result, nil
}

// refund returns the money for a payment that can no longer be fulfilled
func (s *Settler) refund(ctx context.Context, orderID uuid.UUID) (*Settlement, error) {
	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("failed to load order", err)
	}
	if order.ProcessorTxnID == nil {
		return nil, apperr.New(apperr.CodeConflict, "order has no processor transaction to refund")
	}

	pctx, cancel := context.WithTimeout(ctx, s.ProcessorTimeout)
	defer cancel()
	if err := s.Processor.Refund(pctx, *order.ProcessorTxnID, "refund-"+order.ID.String()); err != nil {
		s.Log.ErrorContext(ctx, "Refund Failed", "order_id", order.ID, "error", err)
		return nil, processor.ErrProcessor.WithCause(err)
	}

	const note = "payment succeeded after inventory was released; refunded"
	result := &Settlement{}
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		result.Order = locked
		result.From = locked.Status
		if locked.Status.IsTerminal() {
			return nil
		}
		if err := s.transition(ctx, locked, []Status{StatusPaymentPending, StatusPaymentFailed}, StatusRefunded, note); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Applied {
		metrics.OrderTransition(string(StatusRefunded))
		s.Log.LogOrderTransition(ctx, order.ID.String(), string(result.From), string(StatusRefunded), note)
		s.Publisher.Publish(ctx, notifications.NewLifecycleEvent(notifications.EventOrderRefunded, order.ID.String(), order.RequesterID.String(), s.Clock.Now(), map[string]interface{}{
			"amount":   order.Amount,
			"currency": order.Currency,
			"txn_id":   order.TxnID(),
		}))
	}
	return result, nil
}

// ApplyFailed marks a pending order failed and releases its hold. Orders in
// any other state are left alone.
func (s *Settler) ApplyFailed(ctx context.Context, orderID uuid.UUID, note string) (*Settlement, error) {
	result := &Settlement{}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		result.Order = order
		result.From = order.Status
		if order.Status != StatusPaymentPending {
			return nil
		}
		if _, err := s.Ledger.Expire(ctx, order.HoldID); err != nil {
			return err
		}
		if err := s.transition(ctx, order, []Status{StatusPaymentPending}, StatusPaymentFailed, note); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Applied {
		order := result.Order
		metrics.OrderTransition(string(StatusPaymentFailed))
		s.Log.LogOrderTransition(ctx, order.ID.String(), string(result.From), string(StatusPaymentFailed), note)
		s.Publisher.Publish(ctx, notifications.NewLifecycleEvent(notifications.EventOrderPaymentFailed, order.ID.String(), order.RequesterID.String(), s.Clock.Now(), map[string]interface{}{
			"reason": note,
		}))
	}
	return result, nil
}

func (s *Settler) lockOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, err := s.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("failed to lock order", err)
	}
	return order, nil
}

func (s *Settler) transition(ctx context.Context, order *Order, from []Status, to Status, note string) error {
	now := s.Clock.Now()
	ok, err := s.Orders.UpdateStatus(ctx, order.ID, from, to, now)
	if err != nil {
		return apperr.Internal("failed to update order status", err)
	}
	if !ok {
		return apperr.New(apperr.CodeConflict, "order changed concurrently")
	}
	if err := s.Orders.AppendTimeline(ctx, &TimelineEntry{OrderID: order.ID, At: now, Status: to, Note: note}); err != nil {
		return apperr.Internal("failed to append order timeline", err)
	}
	order.Status = to
	order.UpdatedAt = now
	return nil
}
