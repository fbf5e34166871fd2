package orders

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/processor"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/database"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultProcessorTimeout = 10 * time.Second

var (
	ErrOrderNotFound = apperr.New(apperr.CodeNotFound, "order not found")
	ErrTierMismatch  = apperr.New(apperr.CodeValidation, "hold does not belong to this tier")
	ErrOrderClosed   = apperr.New(apperr.CodeConflict, "order was refunded")
)

// Dependencies groups everything the order flow talks to
type Dependencies struct {
	Tx               database.Transactor
	Orders           Repository
	Ledger           *holds.Ledger
	Tiers            tiers.Repository
	Tickets          tickets.Repository
	Issuer           *tickets.Issuer
	Processor        processor.Processor
	Publisher        notifications.Publisher
	Clock            clock.Clock
	Log              *logger.Logger
	ProcessorTimeout time.Duration
}

// Coordinator turns holds into orders and opens the processor transaction
type Coordinator struct {
	Dependencies
}

func NewCoordinator(deps Dependencies) *Coordinator {
	if deps.ProcessorTimeout <= 0 {
		deps.ProcessorTimeout = DefaultProcessorTimeout
	}
	if deps.Publisher == nil {
		deps.Publisher = notifications.NopPublisher{}
	}
	return &Coordinator{Dependencies: deps}
}

// StartOrder begins checkout for a hold. Free tiers are converted and issued
// immediately. Paid tiers get one order per hold; repeating the call returns
// that order with freshly retrieved client parameters.
func (c *Coordinator) StartOrder(ctx context.Context, requesterID, holdID uuid.UUID, tierID *uuid.UUID) (*StartOrderResult, error) {
	hold, err := c.Ledger.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.RequesterID != requesterID {
		return nil, apperr.ErrForbidden
	}
	if tierID != nil && *tierID != hold.TierID {
		return nil, ErrTierMismatch
	}

	existing, err := c.Orders.GetByHoldID(ctx, holdID)
	switch {
	case err == nil:
		if hold.Status == holds.StatusCancelled && !existing.Status.IsTerminal() {
			return nil, holds.ErrHoldNotActive
		}
		return c.resume(ctx, existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("failed to look up order", err)
	}

	tier, err := c.Tiers.GetByID(ctx, hold.TierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tiers.ErrTierNotFound
		}
		return nil, apperr.Internal("failed to load tier", err)
	}

	if tier.IsFree() {
		return c.issueFree(ctx, hold)
	}
	return c.startPaid(ctx, hold, tier)
}

func (c *Coordinator) issueFree(ctx context.Context, hold *holds.Hold) (*StartOrderResult, error) {
	var issued []tickets.Ticket
	err := c.Tx.WithinTx(ctx, func(ctx context.Context) error {
		converted, err := c.Ledger.Convert(ctx, hold.ID)
		if err != nil {
			return err
		}
		issued, err = c.Issuer.Issue(ctx, converted, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.TicketsIssued(len(issued))
	c.Log.LogTicketsIssued(ctx, hold.ID.String(), "", len(issued))
	c.Publisher.Publish(ctx, ticketsIssuedEvent(hold.ID, nil, hold.RequesterID, issued, c.Clock.Now()))

	views := make([]tickets.TicketView, 0, len(issued))
	for i := range issued {
		views = append(views, issued[i].ToView())
	}
	return &StartOrderResult{FreeTickets: views}, nil
}

func (c *Coordinator) startPaid(ctx context.Context, hold *holds.Hold, tier *tiers.TicketTier) (*StartOrderResult, error) {
	now := c.Clock.Now()
	if !hold.IsLive(now) {
		if hold.Status == holds.StatusConverted {
			return nil, holds.ErrHoldAlreadyConverted
		}
		return nil, holds.ErrHoldNotActive
	}

	order := &Order{
		ID:          uuid.New(),
		RequesterID: hold.RequesterID,
		EventID:     hold.EventID,
		TierID:      hold.TierID,
		HoldID:      hold.ID,
		Status:      StatusPaymentPending,
		Amount:      tier.UnitPrice * int64(hold.Quantity),
		Currency:    tier.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := c.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.Orders.Create(ctx, order); err != nil {
			return err
		}
		return c.Orders.AppendTimeline(ctx, &TimelineEntry{
			OrderID: order.ID,
			At:      now,
			Status:  StatusPaymentPending,
			Note:    "order created",
		})
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			// a concurrent call for the same hold won the insert
			raced, getErr := c.Orders.GetByHoldID(ctx, hold.ID)
			if getErr != nil {
				return nil, apperr.Internal("failed to load order", getErr)
			}
			return c.resume(ctx, raced)
		}
		return nil, apperr.Internal("failed to create order", err)
	}
	metrics.OrderTransition(string(StatusPaymentPending))
	c.Log.LogOrderTransition(ctx, order.ID.String(), "", string(StatusPaymentPending), "order created")

	return c.openPayment(ctx, order)
}

// resume returns an existing order, opening its processor transaction if the
// first attempt never got one
func (c *Coordinator) resume(ctx context.Context, order *Order) (*StartOrderResult, error) {
	if order.Status == StatusRefunded {
		return nil, ErrOrderClosed
	}
	if order.ProcessorTxnID == nil {
		return c.openPayment(ctx, order)
	}

	pctx, cancel := context.WithTimeout(ctx, c.ProcessorTimeout)
	defer cancel()
	payment, err := c.Processor.GetPayment(pctx, *order.ProcessorTxnID)
	if err != nil {
		return nil, processor.ErrProcessor.WithCause(err)
	}
	resp := order.ToResponse()
	return &StartOrderResult{Order: &resp, ClientParams: c.clientParams(payment)}, nil
}

func (c *Coordinator) openPayment(ctx context.Context, order *Order) (*StartOrderResult, error) {
	pctx, cancel := context.WithTimeout(ctx, c.ProcessorTimeout)
	defer cancel()
	payment, err := c.Processor.CreatePayment(pctx, processor.PaymentRequest{
		OrderID:        order.ID,
		HoldID:         order.HoldID,
		TierID:         order.TierID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		IdempotencyKey: order.ID.String(),
	})
	if err != nil {
		c.Log.WarnContext(ctx, "Payment Creation Failed", "order_id", order.ID, "error", err)
		return nil, processor.ErrProcessor.WithCause(err)
	}

	attached, err := c.Orders.AttachTxnID(ctx, order.ID, payment.TxnID, c.Clock.Now())
	if err != nil {
		return nil, apperr.Internal("failed to record processor transaction", err)
	}
	if !attached {
		return nil, apperr.New(apperr.CodeConflict, "order is bound to a different processor transaction")
	}
	order.ProcessorTxnID = &payment.TxnID

	resp := order.ToResponse()
	return &StartOrderResult{Order: &resp, ClientParams: c.clientParams(payment)}, nil
}

func (c *Coordinator) clientParams(p *processor.Payment) *ClientParams {
	return &ClientParams{
		Provider:     c.Processor.Name(),
		TxnID:        p.TxnID,
		ClientSecret: p.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
	}
}

// GetOrder returns an order with its timeline and tickets to its owner
func (c *Coordinator) GetOrder(ctx context.Context, requesterID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := c.Orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperr.Internal("failed to load order", err)
	}
	if order.RequesterID != requesterID {
		return nil, apperr.ErrForbidden
	}

	timeline, err := c.Orders.Timeline(ctx, order.ID)
	if err != nil {
		return nil, apperr.Internal("failed to load order timeline", err)
	}
	issued, err := c.Tickets.ListByHold(ctx, order.HoldID)
	if err != nil {
		return nil, apperr.Internal("failed to load order tickets", err)
	}

	detail := &OrderDetail{OrderResponse: order.ToResponse(), Tickets: make([]tickets.TicketView, 0, len(issued))}
	detail.Timeline = timeline
	for i := range issued {
		detail.Tickets = append(detail.Tickets, issued[i].ToView())
	}
	return detail, nil
}

func (c *Coordinator) ListOrders(ctx context.Context, requesterID uuid.UUID) ([]OrderResponse, error) {
	list, err := c.Orders.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperr.Internal("failed to list orders", err)
	}
	out := make([]OrderResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToResponse())
	}
	return out, nil
}

func ticketsIssuedEvent(holdID uuid.UUID, orderID *uuid.UUID, holderID uuid.UUID, issued []tickets.Ticket, at time.Time) *notifications.LifecycleEvent {
	ids := make([]string, 0, len(issued))
	for i := range issued {
		ids = append(ids, issued[i].ID.String())
	}
	data := map[string]interface{}{
		"hold_id":    holdID.String(),
		"ticket_ids": ids,
	}
	subject := holdID.String()
	if orderID != nil {
		subject = orderID.String()
		data["order_id"] = subject
	}
	return notifications.NewLifecycleEvent(notifications.EventTicketsIssued, subject, holderID.String(), at, data)
}
