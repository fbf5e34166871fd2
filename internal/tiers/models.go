package tiers

import (
	"time"

	"github.com/google/uuid"
)

// TicketTier is a priced class of admission with its own quantity cap.
// Remaining capacity is never stored on the tier.
type TicketTier struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Name          string    `json:"name" gorm:"not null;size:255"`
	UnitPrice     int64     `json:"unit_price" gorm:"not null;check:unit_price >= 0"` // minor units
	Currency      string    `json:"currency" gorm:"not null;size:3;default:'usd'"`
	QuantityTotal int       `json:"quantity_total" gorm:"not null;check:quantity_total >= 0"`
	MaxPerOrder   int       `json:"max_per_order" gorm:"not null;default:10;check:max_per_order >= 1"`
	SaleStartsAt  time.Time `json:"sale_starts_at" gorm:"not null"`
	SaleEndsAt    time.Time `json:"sale_ends_at" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (TicketTier) TableName() string {
	return "ticket_tiers"
}

// IsFree reports whether the tier bypasses the payment processor
func (t *TicketTier) IsFree() bool {
	return t.UnitPrice == 0
}

// OnSale reports whether now falls inside [SaleStartsAt, SaleEndsAt)
func (t *TicketTier) OnSale(now time.Time) bool {
	return !now.Before(t.SaleStartsAt) && now.Before(t.SaleEndsAt)
}

type CreateTierRequest struct {
	Name          string    `json:"name" binding:"required,min=1,max=255"`
	UnitPrice     int64     `json:"unit_price" binding:"min=0"`
	Currency      string    `json:"currency" binding:"omitempty,len=3"`
	QuantityTotal int       `json:"quantity_total" binding:"min=0,max=1000000"`
	MaxPerOrder   int       `json:"max_per_order" binding:"required,min=1,max=100"`
	SaleStartsAt  time.Time `json:"sale_starts_at" binding:"required"`
	SaleEndsAt    time.Time `json:"sale_ends_at" binding:"required,gtfield=SaleStartsAt"`
}

type TierResponse struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Name          string    `json:"name"`
	UnitPrice     int64     `json:"unit_price"`
	Currency      string    `json:"currency"`
	QuantityTotal int       `json:"quantity_total"`
	MaxPerOrder   int       `json:"max_per_order"`
	SaleStartsAt  time.Time `json:"sale_starts_at"`
	SaleEndsAt    time.Time `json:"sale_ends_at"`
}

func (t *TicketTier) ToResponse() TierResponse {
	return TierResponse{
		ID:            t.ID.String(),
		EventID:       t.EventID.String(),
		Name:          t.Name,
		UnitPrice:     t.UnitPrice,
		Currency:      t.Currency,
		QuantityTotal: t.QuantityTotal,
		MaxPerOrder:   t.MaxPerOrder,
		SaleStartsAt:  t.SaleStartsAt,
		SaleEndsAt:    t.SaleEndsAt,
	}
}
