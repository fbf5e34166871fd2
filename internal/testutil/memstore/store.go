// Package memstore is an in-memory backing for every repository. Each
// transaction holds one store-wide lock and is rolled back on error, which
// gives the same guarded-update outcomes as the Postgres repositories.
package memstore

import (
	"context"
	"sort"
	"sync"

	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/internal/webhooks"

	"github.com/google/uuid"
)

type txKey struct{}

type state struct {
	events     map[uuid.UUID]events.Event
	tiers      map[uuid.UUID]tiers.TicketTier
	holds      map[uuid.UUID]holds.Hold
	tickets    map[uuid.UUID]tickets.Ticket
	orders     map[uuid.UUID]orders.Order
	timeline   []orders.TimelineEntry
	checkins   []checkin.Checkin
	profiles   map[uuid.UUID]users.Profile
	deliveries []webhooks.ProcessorEvent
	seq        uint64
}

func newState() *state {
	return &state{
		events:   map[uuid.UUID]events.Event{},
		tiers:    map[uuid.UUID]tiers.TicketTier{},
		holds:    map[uuid.UUID]holds.Hold{},
		tickets:  map[uuid.UUID]tickets.Ticket{},
		orders:   map[uuid.UUID]orders.Order{},
		profiles: map[uuid.UUID]users.Profile{},
	}
}

func (s *state) clone() *state {
	c := &state{
		events:     make(map[uuid.UUID]events.Event, len(s.events)),
		tiers:      make(map[uuid.UUID]tiers.TicketTier, len(s.tiers)),
		holds:      make(map[uuid.UUID]holds.Hold, len(s.holds)),
		tickets:    make(map[uuid.UUID]tickets.Ticket, len(s.tickets)),
		orders:     make(map[uuid.UUID]orders.Order, len(s.orders)),
		timeline:   append([]orders.TimelineEntry(nil), s.timeline...),
		checkins:   append([]checkin.Checkin(nil), s.checkins...),
		profiles:   make(map[uuid.UUID]users.Profile, len(s.profiles)),
		deliveries: append([]webhooks.ProcessorEvent(nil), s.deliveries...),
		seq:        s.seq,
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	for k, v := range s.holds {
		c.holds[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	return c
}

func (s *state) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// Store implements database.Transactor; the repository views share its state
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// WithinTx serializes fn against every other store operation and discards
// its writes if fn returns an error
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// FailNext makes the next call of op return err. Ops are named
// "<view>.<Method>", for example "tickets.CreateBatch".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// begin takes the store lock unless ctx is inside one of this store's
// transactions, then consumes any injected failure for op
func (s *Store) begin(ctx context.Context, op string) (func(), error) {
	unlock := func() {}
	if !s.inTx(ctx) {
		s.mu.Lock()
		unlock = s.mu.Unlock
	}
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		unlock()
		return nil, err
	}
	return unlock, nil
}

func (s *Store) Events() events.Repository     { return &eventRepo{s} }
func (s *Store) Tiers() tiers.Repository       { return &tierRepo{s} }
func (s *Store) Holds() holds.Repository       { return &holdRepo{s} }
func (s *Store) Tickets() tickets.Repository   { return &ticketRepo{s} }
func (s *Store) Orders() orders.Repository     { return &orderRepo{s} }
func (s *Store) Checkins() checkin.Repository  { return &checkinRepo{s} }
func (s *Store) Users() users.Repository       { return &userRepo{s} }
func (s *Store) Webhooks() webhooks.Repository { return &webhookRepo{s} }

// Inspection helpers for assertions

func (s *Store) Hold(id uuid.UUID) (holds.Hold, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.st.holds[id]
	return h, ok
}

func (s *Store) Order(id uuid.UUID) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id]
	return o, ok
}

func (s *Store) TicketsForTier(tierID uuid.UUID) []tickets.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tickets.Ticket
	for _, t := range s.st.tickets {
		if t.TierID == tierID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HoldID != out[j].HoldID {
			return out[i].HoldID.String() < out[j].HoldID.String()
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (s *Store) CheckinRows() []checkin.Checkin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]checkin.Checkin(nil), s.st.checkins...)
}

func (s *Store) Deliveries() []webhooks.ProcessorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]webhooks.ProcessorEvent(nil), s.st.deliveries...)
}
