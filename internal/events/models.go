package events

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Venue     string    `json:"venue" gorm:"not null;size:255"`
	StartsAt  time.Time `json:"starts_at" gorm:"not null"`
	EndsAt    time.Time `json:"ends_at" gorm:"not null;index"`
	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

type EventResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateEventRequest struct {
	Name     string    `json:"name" binding:"required,min=3,max=255"`
	Venue    string    `json:"venue" binding:"required,min=3,max=255"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required,gtfield=StartsAt"`
}

// ToResponse converts Event to EventResponse
func (e *Event) ToResponse(now time.Time) EventResponse {
	return EventResponse{
		ID:        e.ID.String(),
		Name:      e.Name,
		Venue:     e.Venue,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Status:    e.StatusAt(now),
		CreatedAt: e.CreatedAt,
	}
}
