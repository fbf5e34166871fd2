package checkin

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the typed result of a scan; none of them is an error
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeAlreadyScanned   Outcome = "already_scanned"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeParseError       Outcome = "parse_error"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeRevoked          Outcome = "revoked"
	OutcomeExpired          Outcome = "expired"
)

// Checkin is one append-only audit row, written for every scan attempt
type Checkin struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TicketID  *uuid.UUID `json:"ticket_id,omitempty" gorm:"type:uuid;index"`
	ScannerID string     `json:"scanner_id" gorm:"size:255;not null"`
	ScannedAt time.Time  `json:"scanned_at" gorm:"not null"`
	Outcome   Outcome    `json:"outcome" gorm:"type:varchar(32);not null"`
}

// TableName specifies the table name for GORM
func (Checkin) TableName() string {
	return "checkins"
}

type ScanRequest struct {
	Token     string `json:"token" binding:"required"`
	ScannerID string `json:"scanner_id"`
}

type ScanResult struct {
	Outcome           Outcome `json:"outcome"`
	TicketID          string  `json:"ticket_id,omitempty"`
	HolderDisplayName string  `json:"holder_display_name,omitempty"`
}
