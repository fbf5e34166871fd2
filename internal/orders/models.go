package orders

import (
	"strings"
	"time"

	"ticketing/internal/tickets"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPaymentPending Status = "payment_pending"
	StatusPaid           Status = "paid"
	StatusPaymentFailed  Status = "payment_failed"
	StatusRefunded       Status = "refunded"
)

// IsTerminal reports whether the order can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusRefunded
}

// Order is one purchase attempt, 1:1 with a processor transaction
type Order struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID    uuid.UUID  `json:"requester_id" gorm:"type:uuid;not null;index"`
	EventID        uuid.UUID  `json:"event_id" gorm:"type:uuid;not null"`
	TierID         uuid.UUID  `json:"tier_id" gorm:"type:uuid;not null"`
	HoldID         uuid.UUID  `json:"hold_id" gorm:"type:uuid;not null"`
	ProcessorTxnID *string    `json:"processor_txn_id,omitempty" gorm:"size:255"`
	Status         Status     `json:"status" gorm:"type:varchar(20);not null;default:'payment_pending'"`
	Amount         int64      `json:"amount" gorm:"not null;check:amount >= 0"`
	Currency       string     `json:"currency" gorm:"not null;size:3"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null"`
	ReconciledAt   *time.Time `json:"-" gorm:"index"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// TxnID returns the processor transaction id or ""
func (o *Order) TxnID() string {
	if o.ProcessorTxnID == nil {
		return ""
	}
	return *o.ProcessorTxnID
}

// MatchesPayment reports whether a processor-side amount and currency are the
// ones this order was priced at
func (o *Order) MatchesPayment(amount int64, currency string) bool {
	return amount == o.Amount && strings.EqualFold(currency, o.Currency)
}

// TimelineEntry is one row of an order's history, ordered by (at, id)
type TimelineEntry struct {
	ID      uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	At      time.Time `json:"at" gorm:"not null"`
	Status  Status    `json:"status" gorm:"type:varchar(20);not null"`
	Note    string    `json:"note" gorm:"type:text"`
}

// TableName specifies the table name for GORM
func (TimelineEntry) TableName() string {
	return "order_timeline"
}

type StartOrderRequest struct {
	HoldID uuid.UUID  `json:"hold_id" binding:"required"`
	TierID *uuid.UUID `json:"tier_id"`
}

// ClientParams is what the mobile client needs to collect payment
type ClientParams struct {
	Provider     string `json:"provider"`
	TxnID        string `json:"txn_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type OrderResponse struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	TierID    string          `json:"tier_id"`
	HoldID    string          `json:"hold_id"`
	Status    Status          `json:"status"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	Timeline  []TimelineEntry `json:"timeline,omitempty"`
}

type StartOrderResult struct {
	Order        *OrderResponse       `json:"order,omitempty"`
	ClientParams *ClientParams        `json:"client_params,omitempty"`
	FreeTickets  []tickets.TicketView `json:"free_tickets,omitempty"`
}

type OrderDetail struct {
	OrderResponse
	Tickets []tickets.TicketView `json:"tickets"`
}

func (o *Order) ToResponse() OrderResponse {
	return OrderResponse{
		ID:        o.ID.String(),
		EventID:   o.EventID.String(),
		TierID:    o.TierID.String(),
		HoldID:    o.HoldID.String(),
		Status:    o.Status,
		Amount:    o.Amount,
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt,
	}
}
