package tickets

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusScanned Status = "scanned"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Ticket is one admission credential. (hold_id, seq) is unique so a hold
// can only ever be issued once.
type Ticket struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     *uuid.UUID `json:"order_id,omitempty" gorm:"type:uuid;index"`
	HoldID      uuid.UUID  `json:"hold_id" gorm:"type:uuid;not null"`
	Seq         int        `json:"seq" gorm:"not null"`
	TierID      uuid.UUID  `json:"tier_id" gorm:"type:uuid;not null;index:idx_tickets_tier_status"`
	EventID     uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;index"`
	HolderID    uuid.UUID  `json:"holder_id" gorm:"type:uuid;not null;index"`
	Token       string     `json:"-" gorm:"type:text;not null;uniqueIndex"`
	Status      Status     `json:"status" gorm:"type:varchar(20);not null;default:'active';index:idx_tickets_tier_status"`
	IssuedAt    time.Time  `json:"issued_at" gorm:"not null"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy *string    `json:"checked_in_by,omitempty" gorm:"size:255"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Ticket) TableName() string {
	return "tickets"
}

// TicketView is what a holder sees in their wallet
type TicketView struct {
	TicketID string `json:"ticket_id"`
	Status   Status `json:"status"`
	Token    string `json:"token"`
	EventID  string `json:"event_id"`
	TierID   string `json:"tier_id"`
}

func (t *Ticket) ToView() TicketView {
	return TicketView{
		TicketID: t.ID.String(),
		Status:   t.Status,
		Token:    t.Token,
		EventID:  t.EventID.String(),
		TierID:   t.TierID.String(),
	}
}
