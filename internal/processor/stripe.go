package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ticketing/pkg/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe implements Processor on PaymentIntents
type Stripe struct {
	api           *client.API
	webhookSecret string
	log           *logger.Logger
}

func NewStripe(secretKey, webhookSecret string, log *logger.Logger) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret, log: log}
}

func (s *Stripe) Name() string {
	return "stripe"
}

func (s *Stripe) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata(MetaOrderID, req.OrderID.String())
	params.AddMetadata(MetaHoldID, req.HoldID.String())
	params.AddMetadata(MetaTierID, req.TierID.String())

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		s.log.ErrorContext(ctx, "stripe create payment intent failed", "order_id", req.OrderID, "error", err)
		return nil, ErrProcessor.WithCause(err)
	}
	return paymentFromIntent(pi), nil
}

func (s *Stripe) GetPayment(ctx context.Context, txnID string) (*Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(txnID, params)
	if err != nil {
		s.log.ErrorContext(ctx, "stripe get payment intent failed", "txn_id", txnID, "error", err)
		return nil, ErrProcessor.WithCause(err)
	}
	return paymentFromIntent(pi), nil
}

func (s *Stripe) CancelPayment(ctx context.Context, txnID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := s.api.PaymentIntents.Cancel(txnID, params); err != nil {
		s.log.ErrorContext(ctx, "stripe cancel payment intent failed", "txn_id", txnID, "error", err)
		return ErrProcessor.WithCause(err)
	}
	return nil
}

func (s *Stripe) Refund(ctx context.Context, txnID, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(txnID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	if _, err := s.api.Refunds.New(params); err != nil {
		s.log.ErrorContext(ctx, "stripe refund failed", "txn_id", txnID, "error", err)
		return ErrProcessor.WithCause(err)
	}
	return nil
}

// intentPayload is the subset of a PaymentIntent webhook object we read
type intentPayload struct {
	ID               string            `json:"id"`
	Object           string            `json:"object"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (s *Stripe) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		ID:      evt.ID,
		RawType: string(evt.Type),
		Type:    mapEventType(string(evt.Type)),
	}
	if out.Type == EventUnknown || evt.Data == nil {
		return out, nil
	}

	var pi intentPayload
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	out.TxnID = pi.ID
	out.Amount = pi.Amount
	out.Currency = pi.Currency
	out.Metadata = pi.Metadata
	if pi.LastPaymentError != nil {
		out.FailureMessage = pi.LastPaymentError.Message
	}
	return out, nil
}

func mapEventType(t string) EventType {
	switch t {
	case "payment_intent.succeeded":
		return EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return EventPaymentFailed
	case "payment_intent.canceled":
		return EventPaymentCanceled
	default:
		return EventUnknown
	}
}

// mapIntentStatus folds Stripe's intent lifecycle into four states.
// requires_payment_method after an attempt is a failure; before one it is pending.
func mapIntentStatus(pi *stripe.PaymentIntent) Status {
	switch string(pi.Status) {
	case "succeeded":
		return StatusSucceeded
	case "canceled":
		return StatusCanceled
	case "requires_payment_method":
		if pi.LastPaymentError != nil {
			return StatusFailed
		}
		return StatusPending
	default:
		return StatusPending
	}
}

func paymentFromIntent(pi *stripe.PaymentIntent) *Payment {
	return &Payment{
		TxnID:        pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       mapIntentStatus(pi),
		Metadata:     pi.Metadata,
	}
}
