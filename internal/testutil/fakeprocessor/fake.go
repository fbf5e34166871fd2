// Package fakeprocessor is a scriptable in-memory payment processor.
package fakeprocessor

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"ticketing/internal/processor"

	"github.com/google/uuid"
)

const secret = "fake-webhook-secret"

type Processor struct {
	mu       sync.Mutex
	payments map[string]*processor.Payment
	byKey    map[string]string
	refunds  map[string]string
	canceled []string
	stuck    map[string]error
	seq      int

	CreateErr error
	GetErr    error
	CancelErr error
	RefundErr error
	Creates   int
}

func New() *Processor {
	return &Processor{
		payments: map[string]*processor.Payment{},
		byKey:    map[string]string{},
		refunds:  map[string]string{},
		stuck:    map[string]error{},
	}
}

func (p *Processor) Name() string { return "fake" }

func (p *Processor) CreatePayment(_ context.Context, req processor.PaymentRequest) (*processor.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Creates++
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	if txn, ok := p.byKey[req.IdempotencyKey]; ok {
		return copyPayment(p.payments[txn]), nil
	}

	p.seq++
	txn := "pi_fake_" + strconv.Itoa(p.seq)
	payment := &processor.Payment{
		TxnID:        txn,
		ClientSecret: txn + "_secret",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       processor.StatusPending,
		Metadata: map[string]string{
			processor.MetaOrderID: req.OrderID.String(),
			processor.MetaHoldID:  req.HoldID.String(),
			processor.MetaTierID:  req.TierID.String(),
		},
	}
	p.payments[txn] = payment
	p.byKey[req.IdempotencyKey] = txn
	return copyPayment(payment), nil
}

func (p *Processor) GetPayment(_ context.Context, txnID string) (*processor.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.GetErr != nil {
		return nil, p.GetErr
	}
	payment, ok := p.payments[txnID]
	if !ok {
		return nil, fmt.Errorf("no such payment %s", txnID)
	}
	return copyPayment(payment), nil
}

func (p *Processor) CancelPayment(_ context.Context, txnID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.CancelErr != nil {
		return p.CancelErr
	}
	if err := p.stuck[txnID]; err != nil {
		return err
	}
	if payment, ok := p.payments[txnID]; ok {
		payment.Status = processor.StatusCanceled
	}
	p.canceled = append(p.canceled, txnID)
	return nil
}

// Refund is idempotent per key, like the real processor
func (p *Processor) Refund(_ context.Context, txnID, idempotencyKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RefundErr != nil {
		return p.RefundErr
	}
	if _, done := p.refunds[idempotencyKey]; !done {
		p.refunds[idempotencyKey] = txnID
	}
	return nil
}

// SetStatus moves a payment as if the customer acted on it
func (p *Processor) SetStatus(txnID string, status processor.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if payment, ok := p.payments[txnID]; ok {
		payment.Status = status
	}
}

// SetAmount changes what the processor reports as charged for txnID
func (p *Processor) SetAmount(txnID string, amount int64, currency string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if payment, ok := p.payments[txnID]; ok {
		payment.Amount = amount
		payment.Currency = currency
	}
}

// FailCancel makes every CancelPayment for txnID return err; nil clears it
func (p *Processor) FailCancel(txnID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.stuck, txnID)
		return
	}
	p.stuck[txnID] = err
}

func (p *Processor) Refunds() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.refunds))
	for k, v := range p.refunds {
		out[k] = v
	}
	return out
}

func (p *Processor) Canceled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.canceled...)
}

// ParseWebhook accepts payloads signed by Sign
func (p *Processor) ParseWebhook(payload []byte, signatureHeader string) (*processor.Event, error) {
	if !hmac.Equal([]byte(signatureHeader), []byte(Sign(payload))) {
		return nil, processor.ErrInvalidSignature
	}
	var event processor.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Sign returns the signature header the fake expects for payload
func Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Delivery builds a signed webhook body for a payment outcome
func (p *Processor) Delivery(eventType processor.EventType, txnID string) ([]byte, string) {
	p.mu.Lock()
	payment := p.payments[txnID]
	p.mu.Unlock()

	event := processor.Event{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		RawType: string(eventType),
		TxnID:   txnID,
	}
	if payment != nil {
		event.Amount = payment.Amount
		event.Currency = payment.Currency
		event.Metadata = payment.Metadata
	}
	return Encode(event)
}

// Encode signs an arbitrary event
func Encode(event processor.Event) ([]byte, string) {
	payload, _ := json.Marshal(event)
	return payload, Sign(payload)
}

func copyPayment(p *processor.Payment) *processor.Payment {
	out := *p
	out.Metadata = make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
