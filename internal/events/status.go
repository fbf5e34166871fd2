package events

import "time"

type Status string

const (
	StatusUpcoming Status = "UPCOMING"
	StatusActive   Status = "ACTIVE"
	StatusEnded    Status = "ENDED"
)

// StatusAt derives the event status from its schedule
func (e *Event) StatusAt(now time.Time) Status {
	switch {
	case now.Before(e.StartsAt):
		return StatusUpcoming
	case now.Before(e.EndsAt):
		return StatusActive
	default:
		return StatusEnded
	}
}
