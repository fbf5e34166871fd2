// Package schema lists every persisted model in migration order.
package schema

import (
	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/internal/webhooks"
)

func Models() []interface{} {
	return []interface{}{
		&users.Profile{},
		&events.Event{},
		&tiers.TicketTier{},
		&holds.Hold{},
		&orders.Order{},
		&orders.TimelineEntry{},
		&tickets.Ticket{},
		&checkin.Checkin{},
		&webhooks.ProcessorEvent{},
	}
}
