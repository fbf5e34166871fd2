package webhooks

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/processor"
	"ticketing/internal/shared/apperr"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Settler applies processor outcomes to orders
type Settler interface {
	ApplySucceeded(ctx context.Context, orderID uuid.UUID, note string) (*orders.Settlement, error)
	ApplyFailed(ctx context.Context, orderID uuid.UUID, note string) (*orders.Settlement, error)
}

// Handler verifies, deduplicates and applies processor webhook deliveries
type Handler struct {
	repo      Repository
	orders    orders.Repository
	settler   Settler
	processor processor.Processor
	clock     clock.Clock
	log       *logger.Logger
}

func NewHandler(repo Repository, orderRepo orders.Repository, settler Settler, p processor.Processor, clk clock.Clock, log *logger.Logger) *Handler {
	return &Handler{
		repo:      repo,
		orders:    orderRepo,
		settler:   settler,
		processor: p,
		clock:     clk,
		log:       log,
	}
}

// Deliver handles one raw delivery. Signature and payload errors are
// rejected; any other returned error asks the processor to redeliver.
func (h *Handler) Deliver(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := h.processor.ParseWebhook(payload, signatureHeader)
	if err != nil {
		metrics.Webhook("unverified", "rejected")
		if errors.Is(err, processor.ErrInvalidSignature) {
			return err
		}
		return apperr.Wrap(apperr.CodeValidation, "malformed webhook payload", err)
	}

	record, fresh, err := h.repo.Record(ctx, &ProcessorEvent{
		Provider:        h.processor.Name(),
		ProviderEventID: event.ID,
		EventType:       event.RawType,
		TxnID:           event.TxnID,
		ReceivedAt:      h.clock.Now(),
	})
	if err != nil {
		return apperr.Internal("failed to record webhook delivery", err)
	}
	if !fresh && record.ProcessedAt != nil && record.ProcessingError == "" {
		metrics.Webhook(string(event.Type), "duplicate")
		h.log.DebugContext(ctx, "Duplicate Webhook Ignored", "event_id", event.ID)
		return nil
	}

	h.log.LogWebhook(ctx, event.ID, event.RawType, event.TxnID)
	procErr := h.OnEvent(ctx, event)

	var note string
	if procErr != nil {
		note = procErr.Error()
	}
	if err := h.repo.MarkProcessed(ctx, record.ID, h.clock.Now(), note); err != nil {
		h.log.ErrorContext(ctx, "Failed To Mark Webhook Processed", "event_id", event.ID, "error", err)
	}

	if procErr != nil {
		metrics.Webhook(string(event.Type), "error")
		return procErr
	}
	metrics.Webhook(string(event.Type), "applied")
	return nil
}

// OnEvent applies a verified event. Only storage and processor failures are
// returned; events that cannot be matched to an order are logged and dropped.
func (h *Handler) OnEvent(ctx context.Context, event *processor.Event) error {
	switch event.Type {
	case processor.EventPaymentSucceeded, processor.EventPaymentFailed, processor.EventPaymentCanceled:
	default:
		h.log.InfoContext(ctx, "Unhandled Webhook Type", "event_id", event.ID, "type", event.RawType)
		return nil
	}

	order, err := h.resolveOrder(ctx, event)
	if err != nil {
		return err
	}
	if order == nil {
		h.log.WarnContext(ctx, "Webhook For Unknown Order", "event_id", event.ID, "txn_id", event.TxnID)
		return nil
	}

	if !order.MatchesPayment(event.Amount, event.Currency) {
		h.log.ErrorContext(ctx, "Webhook Amount Mismatch",
			"event_id", event.ID,
			"order_id", order.ID,
			"expected_amount", order.Amount,
			"expected_currency", order.Currency,
			"amount", event.Amount,
			"currency", event.Currency,
		)
		return nil
	}

	switch event.Type {
	case processor.EventPaymentSucceeded:
		_, err = h.settler.ApplySucceeded(ctx, order.ID, fmt.Sprintf("payment succeeded (%s)", event.ID))
	case processor.EventPaymentFailed:
		note := "payment failed"
		if event.FailureMessage != "" {
			note = "payment failed: " + event.FailureMessage
		}
		_, err = h.settler.ApplyFailed(ctx, order.ID, note)
	case processor.EventPaymentCanceled:
		_, err = h.settler.ApplyFailed(ctx, order.ID, "payment canceled")
	}
	return h.retryable(ctx, event, err)
}

// resolveOrder finds the order by transaction id, falling back to the order
// id in metadata for deliveries that beat the txn id being stored
func (h *Handler) resolveOrder(ctx context.Context, event *processor.Event) (*orders.Order, error) {
	order, err := h.orders.GetByTxnID(ctx, event.TxnID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to look up order by transaction", err)
	}

	orderID, ok := event.OrderID()
	if !ok {
		return nil, nil
	}
	order, err = h.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal("failed to look up order", err)
	}

	attached, err := h.orders.AttachTxnID(ctx, order.ID, event.TxnID, h.clock.Now())
	if err != nil {
		return nil, apperr.Internal("failed to attach transaction to order", err)
	}
	if !attached {
		h.log.WarnContext(ctx, "Webhook Transaction Does Not Match Order",
			"event_id", event.ID, "order_id", order.ID, "txn_id", event.TxnID, "stored_txn_id", order.TxnID())
		return nil, nil
	}
	order.ProcessorTxnID = &event.TxnID
	return order, nil
}

// retryable keeps storage, processor and lock failures, dropping outcomes
// that a redelivery cannot change
func (h *Handler) retryable(ctx context.Context, event *processor.Event, err error) error {
	if err == nil {
		return nil
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeInternal, apperr.CodeProcessor:
		return err
	}
	if errors.Is(err, holds.ErrInventoryBusy) {
		return err
	}
	h.log.WarnContext(ctx, "Webhook Not Applied", "event_id", event.ID, "txn_id", event.TxnID, "error", err)
	return nil
}
