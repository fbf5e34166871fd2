package webhooks

import "time"

// ProcessorEvent records one verified webhook delivery, unique per
// (provider, provider_event_id)
type ProcessorEvent struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement"`
	Provider        string     `gorm:"size:32;not null"`
	ProviderEventID string     `gorm:"size:255;not null"`
	EventType       string     `gorm:"size:64;not null"`
	TxnID           string     `gorm:"size:255;index"`
	ReceivedAt      time.Time  `gorm:"not null"`
	ProcessedAt     *time.Time `gorm:""`
	ProcessingError string     `gorm:"type:text"`
}

// TableName specifies the table name for GORM
func (ProcessorEvent) TableName() string {
	return "processor_events"
}
