// Package testutil wires the engine against in-memory storage for unit
// tests, and opens a real Postgres database for integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/notifications"
	"ticketing/internal/orders"
	"ticketing/internal/reconciler"
	"ticketing/internal/shared/database"
	"ticketing/internal/signer"
	"ticketing/internal/testutil/fakeprocessor"
	"ticketing/internal/testutil/memstore"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/internal/webhooks"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

const SigningSecret = "test-signing-secret-with-at-least-32-bytes"

// Epoch is where every engine clock starts
var Epoch = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

// RecordingPublisher keeps every published lifecycle event
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*notifications.LifecycleEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, event *notifications.LifecycleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *RecordingPublisher) Close() error { return nil }

// Count returns how many events of a type were published
func (p *RecordingPublisher) Count(eventType notifications.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// Repos is one repository per table
type Repos struct {
	Events   events.Repository
	Tiers    tiers.Repository
	Holds    holds.Repository
	Tickets  tickets.Repository
	Orders   orders.Repository
	Checkins checkin.Repository
	Users    users.Repository
	Webhooks webhooks.Repository
}

// Engine is every component wired to one backing store
type Engine struct {
	Store       *memstore.Store
	Repos       Repos
	Clock       *clock.Manual
	Processor   *fakeprocessor.Processor
	Publisher   *RecordingPublisher
	Signer      *signer.Signer
	Log         *logger.Logger
	Ledger      *holds.Ledger
	Issuer      *tickets.Issuer
	Tickets     tickets.Service
	Coordinator *orders.Coordinator
	Settler     *orders.Settler
	Webhooks    *webhooks.Handler
	Scanner     *checkin.Scanner
	Reconciler  *reconciler.Reconciler
}

// NewEngine wires the engine to a fresh memstore
func NewEngine(t testing.TB) *Engine {
	t.Helper()
	store := memstore.New()
	e := wire(t, store, Repos{
		Events:   store.Events(),
		Tiers:    store.Tiers(),
		Holds:    store.Holds(),
		Tickets:  store.Tickets(),
		Orders:   store.Orders(),
		Checkins: store.Checkins(),
		Users:    store.Users(),
		Webhooks: store.Webhooks(),
	})
	e.Store = store
	return e
}

// NewPostgresEngine wires the engine to the integration database
func NewPostgresEngine(t *testing.T) *Engine {
	t.Helper()
	db := OpenPostgres(t)
	return wire(t, database.NewTransactor(db, 2*time.Second), Repos{
		Events:   events.NewRepository(db),
		Tiers:    tiers.NewRepository(db),
		Holds:    holds.NewRepository(db),
		Tickets:  tickets.NewRepository(db),
		Orders:   orders.NewRepository(db),
		Checkins: checkin.NewRepository(db),
		Users:    users.NewRepository(db),
		Webhooks: webhooks.NewRepository(db),
	})
}

func wire(t testing.TB, tx database.Transactor, repos Repos) *Engine {
	t.Helper()

	s, err := signer.New(SigningSecret)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	e := &Engine{
		Repos:     repos,
		Clock:     clock.NewManual(Epoch),
		Processor: fakeprocessor.New(),
		Publisher: NewRecordingPublisher(),
		Signer:    s,
		Log:       logger.NewDiscard(),
	}

	e.Ledger = holds.NewLedger(tx, repos.Holds, repos.Tiers, e.Clock, holds.DefaultHoldTTL, e.Log)
	e.Issuer = tickets.NewIssuer(repos.Tickets, s, e.Clock)
	e.Tickets = tickets.NewService(repos.Tickets, e.Clock, e.Log)

	deps := orders.Dependencies{
		Tx:        tx,
		Orders:    repos.Orders,
		Ledger:    e.Ledger,
		Tiers:     repos.Tiers,
		Tickets:   repos.Tickets,
		Issuer:    e.Issuer,
		Processor: e.Processor,
		Publisher: e.Publisher,
		Clock:     e.Clock,
		Log:       e.Log,
	}
	e.Coordinator = orders.NewCoordinator(deps)
	e.Settler = orders.NewSettler(deps)
	e.Webhooks = webhooks.NewHandler(repos.Webhooks, repos.Orders, e.Settler, e.Processor, e.Clock, e.Log)
	e.Scanner = checkin.NewScanner(tx, repos.Checkins, repos.Tickets, repos.Users, s, e.Publisher, e.Clock, e.Log)
	e.Reconciler = reconciler.New(repos.Orders, e.Settler, e.Processor, e.Ledger, e.Tickets, e.Clock, e.Log, reconciler.DefaultConfig())
	return e
}

// TierOptions shapes a seeded tier; zero values get sensible defaults
type TierOptions struct {
	UnitPrice     int64
	QuantityTotal int
	MaxPerOrder   int
}

// SeedTier creates an event running tomorrow and a tier on sale now
func (e *Engine) SeedTier(t testing.TB, opts TierOptions) *tiers.TicketTier {
	t.Helper()
	ctx := context.Background()
	now := e.Clock.Now()

	event := &events.Event{
		ID:        uuid.New(),
		Name:      "Launch Night",
		Venue:     "Pier 70",
		StartsAt:  now.Add(24 * time.Hour),
		EndsAt:    now.Add(28 * time.Hour),
		CreatedBy: uuid.New(),
	}
	if err := e.Repos.Events.Create(ctx, event); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	if opts.QuantityTotal == 0 {
		opts.QuantityTotal = 10
	}
	if opts.MaxPerOrder == 0 {
		opts.MaxPerOrder = 4
	}
	tier := &tiers.TicketTier{
		ID:            uuid.New(),
		EventID:       event.ID,
		Name:          "General Admission",
		UnitPrice:     opts.UnitPrice,
		Currency:      "usd",
		QuantityTotal: opts.QuantityTotal,
		MaxPerOrder:   opts.MaxPerOrder,
		SaleStartsAt:  now.Add(-time.Hour),
		SaleEndsAt:    now.Add(20 * time.Hour),
	}
	if err := e.Repos.Tiers.Create(ctx, tier); err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	return tier
}

// SeedProfile registers a display name for a user id
func (e *Engine) SeedProfile(t testing.TB, name string) uuid.UUID {
	t.Helper()
	profile := &users.Profile{ID: uuid.New(), DisplayName: name, Email: uuid.NewString() + "@example.com", Role: users.RoleUser}
	if err := e.Repos.Users.Create(context.Background(), profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return profile.ID
}

// StartPaidOrder reserves quantity units and opens a paid order for them
func (e *Engine) StartPaidOrder(t testing.TB, tier *tiers.TicketTier, requesterID uuid.UUID, quantity int) (*holds.Hold, *orders.StartOrderResult) {
	t.Helper()
	ctx := context.Background()
	hold, err := e.Ledger.Reserve(ctx, tier.ID, requesterID, quantity)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	result, err := e.Coordinator.StartOrder(ctx, requesterID, hold.ID, nil)
	if err != nil {
		t.Fatalf("start order: %v", err)
	}
	return hold, result
}

// IssueFree reserves and checks out a free tier, returning its tickets
func (e *Engine) IssueFree(t testing.TB, tier *tiers.TicketTier, holderID uuid.UUID, quantity int) []tickets.TicketView {
	t.Helper()
	ctx := context.Background()
	hold, err := e.Ledger.Reserve(ctx, tier.ID, holderID, quantity)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	result, err := e.Coordinator.StartOrder(ctx, holderID, hold.ID, nil)
	if err != nil {
		t.Fatalf("start order: %v", err)
	}
	return result.FreeTickets
}
