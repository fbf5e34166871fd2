package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderPaid          EventType = "order.paid"
	EventOrderPaymentFailed EventType = "order.payment_failed"
	EventOrderRefunded      EventType = "order.refunded"
	EventTicketsIssued      EventType = "tickets.issued"
	EventTicketScanned      EventType = "ticket.scanned"
)

// LifecycleEvent is published after the state change it describes has committed
type LifecycleEvent struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	SubjectID  string                 `json:"subject_id"` // order or ticket id
	ActorID    string                 `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func NewLifecycleEvent(eventType EventType, subjectID, actorID string, at time.Time, data map[string]interface{}) *LifecycleEvent {
	return &LifecycleEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at,
		SubjectID:  subjectID,
		ActorID:    actorID,
		Data:       data,
	}
}

// GetPartitionKey keeps all events of one subject on one partition
func (e *LifecycleEvent) GetPartitionKey() string {
	return e.SubjectID
}

func (e *LifecycleEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
