package memstore

import (
	"context"
	"sort"
	"time"

	"ticketing/internal/checkin"
	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/orders"
	"ticketing/internal/tickets"
	"ticketing/internal/tiers"
	"ticketing/internal/users"
	"ticketing/internal/webhooks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(ctx context.Context, event *events.Event) error {
	unlock, err := r.s.begin(ctx, "events.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, exists := r.s.st.events[event.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	r.s.st.events[event.ID] = *event
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	unlock, err := r.s.begin(ctx, "events.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	e, ok := r.s.st.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

type tierRepo struct{ s *Store }

func (r *tierRepo) Create(ctx context.Context, tier *tiers.TicketTier) error {
	unlock, err := r.s.begin(ctx, "tiers.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	if _, exists := r.s.st.tiers[tier.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	r.s.st.tiers[tier.ID] = *tier
	return nil
}

func (r *tierRepo) GetByID(ctx context.Context, id uuid.UUID) (*tiers.TicketTier, error) {
	unlock, err := r.s.begin(ctx, "tiers.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, ok := r.s.st.tiers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

// GetForUpdate needs no row lock: a transaction already owns the whole store
func (r *tierRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*tiers.TicketTier, error) {
	unlock, err := r.s.begin(ctx, "tiers.GetForUpdate")
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, ok := r.s.st.tiers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *tierRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]tiers.TicketTier, error) {
	unlock, err := r.s.begin(ctx, "tiers.ListByEvent")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []tiers.TicketTier
	for _, t := range r.s.st.tiers {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitPrice < out[j].UnitPrice })
	return out, nil
}

type holdRepo struct{ s *Store }

func (r *holdRepo) Create(ctx context.Context, hold *holds.Hold) error {
	unlock, err := r.s.begin(ctx, "holds.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	if _, exists := r.s.st.holds[hold.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	r.s.st.holds[hold.ID] = *hold
	return nil
}

func (r *holdRepo) GetByID(ctx context.Context, id uuid.UUID) (*holds.Hold, error) {
	unlock, err := r.s.begin(ctx, "holds.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	h, ok := r.s.st.holds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &h, nil
}

func (r *holdRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*holds.Hold, error) {
	return r.GetByID(ctx, id)
}

func (r *holdRepo) ActiveQuantity(ctx context.Context, tierID uuid.UUID, now time.Time) (int, error) {
	unlock, err := r.s.begin(ctx, "holds.ActiveQuantity")
	if err != nil {
		return 0, err
	}
	defer unlock()
	total := 0
	for _, h := range r.s.st.holds {
		if h.TierID == tierID && h.IsLive(now) {
			total += h.Quantity
		}
	}
	return total, nil
}

func (r *holdRepo) RequesterActiveQuantity(ctx context.Context, tierID, requesterID uuid.UUID, now time.Time) (int, error) {
	unlock, err := r.s.begin(ctx, "holds.RequesterActiveQuantity")
	if err != nil {
		return 0, err
	}
	defer unlock()
	total := 0
	for _, h := range r.s.st.holds {
		if h.TierID == tierID && h.RequesterID == requesterID && h.IsLive(now) {
			total += h.Quantity
		}
	}
	return total, nil
}

func (r *holdRepo) IssuedCount(ctx context.Context, tierID uuid.UUID) (int, error) {
	unlock, err := r.s.begin(ctx, "holds.IssuedCount")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, t := range r.s.st.tickets {
		if t.TierID == tierID && t.Status != tickets.StatusRevoked {
			n++
		}
	}
	return n, nil
}

func (r *holdRepo) Transition(ctx context.Context, id uuid.UUID, from, to holds.Status, at time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "holds.Transition")
	if err != nil {
		return false, err
	}
	defer unlock()
	h, ok := r.s.st.holds[id]
	if !ok || h.Status != from {
		return false, nil
	}
	h.Status = to
	h.ResolvedAt = &at
	r.s.st.holds[id] = h
	return true, nil
}

func (r *holdRepo) SetReplacedBy(ctx context.Context, id, replacement uuid.UUID) error {
	unlock, err := r.s.begin(ctx, "holds.SetReplacedBy")
	if err != nil {
		return err
	}
	defer unlock()
	h, ok := r.s.st.holds[id]
	if !ok {
		return nil
	}
	h.ReplacedBy = &replacement
	r.s.st.holds[id] = h
	return nil
}

func (r *holdRepo) ListLapsed(ctx context.Context, now time.Time, limit int) ([]holds.Hold, error) {
	unlock, err := r.s.begin(ctx, "holds.ListLapsed")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []holds.Hold
	for _, h := range r.s.st.holds {
		if h.Status == holds.StatusActive && !h.ExpiresAt.After(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) CreateBatch(ctx context.Context, batch []tickets.Ticket) error {
	unlock, err := r.s.begin(ctx, "tickets.CreateBatch")
	if err != nil {
		return err
	}
	defer unlock()
	for _, t := range batch {
		for _, existing := range r.s.st.tickets {
			if existing.ID == t.ID || existing.Token == t.Token || (existing.HoldID == t.HoldID && existing.Seq == t.Seq) {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	for _, t := range batch {
		r.s.st.tickets[t.ID] = t
	}
	return nil
}

func (r *ticketRepo) GetByID(ctx context.Context, id uuid.UUID) (*tickets.Ticket, error) {
	unlock, err := r.s.begin(ctx, "tickets.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, ok := r.s.st.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *ticketRepo) GetByToken(ctx context.Context, token string) (*tickets.Ticket, error) {
	unlock, err := r.s.begin(ctx, "tickets.GetByToken")
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, t := range r.s.st.tickets {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *ticketRepo) ListByHolder(ctx context.Context, holderID uuid.UUID) ([]tickets.Ticket, error) {
	return r.list(ctx, "tickets.ListByHolder", func(t tickets.Ticket) bool { return t.HolderID == holderID })
}

func (r *ticketRepo) ListByHold(ctx context.Context, holdID uuid.UUID) ([]tickets.Ticket, error) {
	return r.list(ctx, "tickets.ListByHold", func(t tickets.Ticket) bool { return t.HoldID == holdID })
}

func (r *ticketRepo) list(ctx context.Context, op string, match func(tickets.Ticket) bool) ([]tickets.Ticket, error) {
	unlock, err := r.s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []tickets.Ticket
	for _, t := range r.s.st.tickets {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *ticketRepo) MarkScanned(ctx context.Context, id uuid.UUID, at time.Time, scannerID string) (bool, error) {
	unlock, err := r.s.begin(ctx, "tickets.MarkScanned")
	if err != nil {
		return false, err
	}
	defer unlock()
	t, ok := r.s.st.tickets[id]
	if !ok || t.Status != tickets.StatusActive {
		return false, nil
	}
	t.Status = tickets.StatusScanned
	t.CheckedInAt = &at
	t.CheckedInBy = &scannerID
	r.s.st.tickets[id] = t
	return true, nil
}

func (r *ticketRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "tickets.Revoke")
	if err != nil {
		return false, err
	}
	defer unlock()
	t, ok := r.s.st.tickets[id]
	if !ok || t.Status != tickets.StatusActive {
		return false, nil
	}
	t.Status = tickets.StatusRevoked
	t.RevokedAt = &at
	r.s.st.tickets[id] = t
	return true, nil
}

func (r *ticketRepo) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	unlock, err := r.s.begin(ctx, "tickets.ExpireEnded")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for id, t := range r.s.st.tickets {
		if t.Status != tickets.StatusActive {
			continue
		}
		if e, ok := r.s.st.events[t.EventID]; ok && !e.EndsAt.After(now) {
			t.Status = tickets.StatusExpired
			r.s.st.tickets[id] = t
			n++
		}
	}
	return n, nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, order *orders.Order) error {
	unlock, err := r.s.begin(ctx, "orders.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for _, o := range r.s.st.orders {
		if o.ID == order.ID || o.HoldID == order.HoldID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.st.orders[order.ID] = *order
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	unlock, err := r.s.begin(ctx, "orders.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) GetByHoldID(ctx context.Context, holdID uuid.UUID) (*orders.Order, error) {
	return r.find(ctx, "orders.GetByHoldID", func(o orders.Order) bool { return o.HoldID == holdID })
}

func (r *orderRepo) GetByTxnID(ctx context.Context, txnID string) (*orders.Order, error) {
	return r.find(ctx, "orders.GetByTxnID", func(o orders.Order) bool { return o.TxnID() == txnID && txnID != "" })
}

func (r *orderRepo) find(ctx context.Context, op string, match func(orders.Order) bool) (*orders.Order, error) {
	unlock, err := r.s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, o := range r.s.st.orders {
		if match(o) {
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *orderRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]orders.Order, error) {
	unlock, err := r.s.begin(ctx, "orders.ListByRequester")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []orders.Order
	for _, o := range r.s.st.orders {
		if o.RequesterID == requesterID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *orderRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]orders.Order, error) {
	unlock, err := r.s.begin(ctx, "orders.ListStalePending")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []orders.Order
	for _, o := range r.s.st.orders {
		if o.Status == orders.StatusPaymentPending && !o.CreatedAt.After(olderThan) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ReconciledAt, out[j].ReconciledAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *orderRepo) MarkReconcileAttempt(ctx context.Context, id uuid.UUID, at time.Time) error {
	unlock, err := r.s.begin(ctx, "orders.MarkReconcileAttempt")
	if err != nil {
		return err
	}
	defer unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil
	}
	o.ReconciledAt = &at
	r.s.st.orders[id] = o
	return nil
}

func (r *orderRepo) AttachTxnID(ctx context.Context, id uuid.UUID, txnID string, at time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "orders.AttachTxnID")
	if err != nil {
		return false, err
	}
	defer unlock()
	o, ok := r.s.st.orders[id]
	if !ok || (o.ProcessorTxnID != nil && *o.ProcessorTxnID != txnID) {
		return false, nil
	}
	for _, other := range r.s.st.orders {
		if other.ID != id && other.TxnID() == txnID {
			return false, gorm.ErrDuplicatedKey
		}
	}
	o.ProcessorTxnID = &txnID
	o.UpdatedAt = at
	r.s.st.orders[id] = o
	return true, nil
}

func (r *orderRepo) SetHoldID(ctx context.Context, id, holdID uuid.UUID, at time.Time) error {
	unlock, err := r.s.begin(ctx, "orders.SetHoldID")
	if err != nil {
		return err
	}
	defer unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil
	}
	o.HoldID = holdID
	o.UpdatedAt = at
	r.s.st.orders[id] = o
	return nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []orders.Status, to orders.Status, at time.Time) (bool, error) {
	unlock, err := r.s.begin(ctx, "orders.UpdateStatus")
	if err != nil {
		return false, err
	}
	defer unlock()
	o, ok := r.s.st.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			o.UpdatedAt = at
			r.s.st.orders[id] = o
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepo) AppendTimeline(ctx context.Context, entry *orders.TimelineEntry) error {
	unlock, err := r.s.begin(ctx, "orders.AppendTimeline")
	if err != nil {
		return err
	}
	defer unlock()
	entry.ID = r.s.st.nextSeq()
	r.s.st.timeline = append(r.s.st.timeline, *entry)
	return nil
}

func (r *orderRepo) Timeline(ctx context.Context, orderID uuid.UUID) ([]orders.TimelineEntry, error) {
	unlock, err := r.s.begin(ctx, "orders.Timeline")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []orders.TimelineEntry
	for _, e := range r.s.st.timeline {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type checkinRepo struct{ s *Store }

func (r *checkinRepo) Append(ctx context.Context, row *checkin.Checkin) error {
	unlock, err := r.s.begin(ctx, "checkins.Append")
	if err != nil {
		return err
	}
	defer unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	r.s.st.checkins = append(r.s.st.checkins, *row)
	return nil
}

func (r *checkinRepo) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]checkin.Checkin, error) {
	unlock, err := r.s.begin(ctx, "checkins.ListByTicket")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []checkin.Checkin
	for _, c := range r.s.st.checkins {
		if c.TicketID != nil && *c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, profile *users.Profile) error {
	unlock, err := r.s.begin(ctx, "users.Create")
	if err != nil {
		return err
	}
	defer unlock()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	r.s.st.profiles[profile.ID] = *profile
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*users.Profile, error) {
	unlock, err := r.s.begin(ctx, "users.GetByID")
	if err != nil {
		return nil, err
	}
	defer unlock()
	p, ok := r.s.st.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *userRepo) DisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	unlock, err := r.s.begin(ctx, "users.DisplayName")
	if err != nil {
		return "", err
	}
	defer unlock()
	return r.s.st.profiles[id].DisplayName, nil
}

type webhookRepo struct{ s *Store }

func (r *webhookRepo) Record(ctx context.Context, event *webhooks.ProcessorEvent) (*webhooks.ProcessorEvent, bool, error) {
	unlock, err := r.s.begin(ctx, "webhooks.Record")
	if err != nil {
		return nil, false, err
	}
	defer unlock()
	for _, d := range r.s.st.deliveries {
		if d.Provider == event.Provider && d.ProviderEventID == event.ProviderEventID {
			return &d, false, nil
		}
	}
	event.ID = r.s.st.nextSeq()
	r.s.st.deliveries = append(r.s.st.deliveries, *event)
	return event, true, nil
}

func (r *webhookRepo) MarkProcessed(ctx context.Context, id uint64, at time.Time, processingError string) error {
	unlock, err := r.s.begin(ctx, "webhooks.MarkProcessed")
	if err != nil {
		return err
	}
	defer unlock()
	for i := range r.s.st.deliveries {
		if r.s.st.deliveries[i].ID == id {
			r.s.st.deliveries[i].ProcessedAt = &at
			r.s.st.deliveries[i].ProcessingError = processingError
		}
	}
	return nil
}
