package holds

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s != StatusActive
}

// Hold is a time-limited reservation of inventory units. Rows are never deleted.
type Hold struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TierID      uuid.UUID  `json:"tier_id" gorm:"type:uuid;not null;index:idx_holds_tier_status"`
	EventID     uuid.UUID  `json:"event_id" gorm:"type:uuid;not null"`
	RequesterID uuid.UUID  `json:"requester_id" gorm:"type:uuid;not null;index"`
	Quantity    int        `json:"quantity" gorm:"not null;check:quantity > 0"`
	Status      Status     `json:"status" gorm:"type:varchar(20);not null;default:'active';index:idx_holds_tier_status"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ReplacedBy  *uuid.UUID `json:"replaced_by,omitempty" gorm:"type:uuid"`
}

// TableName specifies the table name for GORM
func (Hold) TableName() string {
	return "holds"
}

// IsLive reports whether the hold still counts against capacity at now
func (h *Hold) IsLive(now time.Time) bool {
	return h.Status == StatusActive && h.ExpiresAt.After(now)
}

type ReserveRequest struct {
	TierID   uuid.UUID `json:"tier_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type HoldResponse struct {
	HoldID    string    `json:"hold_id"`
	TierID    string    `json:"tier_id"`
	Quantity  int       `json:"quantity"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AvailabilityResponse struct {
	TierID    string `json:"tier_id"`
	Remaining int    `json:"remaining"`
}

func (h *Hold) ToResponse() HoldResponse {
	return HoldResponse{
		HoldID:    h.ID.String(),
		TierID:    h.TierID.String(),
		Quantity:  h.Quantity,
		Status:    h.Status,
		ExpiresAt: h.ExpiresAt,
	}
}
