// Package processor is the boundary to the external payment processor.
package processor

import (
	"context"
	"errors"

	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventPaymentCanceled  EventType = "payment_canceled"
	EventUnknown          EventType = "unknown"
)

// Metadata keys attached to every processor transaction
const (
	MetaOrderID = "order_id"
	MetaHoldID  = "hold_id"
	MetaTierID  = "tier_id"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrProcessor        = apperr.New(apperr.CodeProcessor, "payment processor error")
)

type PaymentRequest struct {
	OrderID        uuid.UUID
	HoldID         uuid.UUID
	TierID         uuid.UUID
	Amount         int64
	Currency       string
	IdempotencyKey string
}

type Payment struct {
	TxnID        string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       Status
	Metadata     map[string]string
}

// Event is a verified, processor-neutral webhook notification
type Event struct {
	ID             string
	Type           EventType
	RawType        string
	TxnID          string
	Amount         int64
	Currency       string
	Metadata       map[string]string
	FailureMessage string
}

// OrderID returns the order id carried in metadata, if any
func (e *Event) OrderID() (uuid.UUID, bool) {
	id, err := uuid.Parse(e.Metadata[MetaOrderID])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

type Processor interface {
	Name() string
	CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, txnID string) (*Payment, error)
	CancelPayment(ctx context.Context, txnID string) error
	Refund(ctx context.Context, txnID, idempotencyKey string) error
	// ParseWebhook verifies the signature header before decoding anything
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
}
