package tickets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/testutil"
	"ticketing/internal/tickets"

	"github.com/google/uuid"
)

func convertedHold(t *testing.T, e *testutil.Engine, quantity int) *holds.Hold {
	t.Helper()
	ctx := context.Background()
	tier := e.SeedTier(t, testutil.TierOptions{QuantityTotal: 5})
	hold, err := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), quantity)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	converted, err := e.Ledger.Convert(ctx, hold.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return converted
}

func TestIssuer_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("one signed ticket per unit", func(t *testing.T) {
		e := testutil.NewEngine(t)
		hold := convertedHold(t, e, 3)
		orderID := uuid.New()

		issued, err := e.Issuer.Issue(ctx, hold, &orderID)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if len(issued) != 3 {
			t.Fatalf("issued %d tickets, want 3", len(issued))
		}
		for i, ticket := range issued {
			if ticket.Seq != i+1 || ticket.Status != tickets.StatusActive || *ticket.OrderID != orderID {
				t.Fatalf("unexpected ticket %+v", ticket)
			}
			v := e.Signer.Verify(ticket.Token)
			if !v.Valid || v.TicketID != ticket.ID || v.EventID != hold.EventID {
				t.Fatalf("token does not verify for ticket %d: %+v", i, v)
			}
		}
	})

	t.Run("a hold is issued at most once", func(t *testing.T) {
		e := testutil.NewEngine(t)
		hold := convertedHold(t, e, 2)

		if _, err := e.Issuer.Issue(ctx, hold, nil); err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := e.Issuer.Issue(ctx, hold, nil); !errors.Is(err, tickets.ErrAlreadyIssued) {
			t.Fatalf("expected ErrAlreadyIssued, got %v", err)
		}
		if n := len(e.Store.TicketsForTier(hold.TierID)); n != 2 {
			t.Fatalf("stored %d tickets, want 2", n)
		}
	})

	t.Run("unconverted hold is refused", func(t *testing.T) {
		e := testutil.NewEngine(t)
		tier := e.SeedTier(t, testutil.TierOptions{})
		hold, _ := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), 1)

		if _, err := e.Issuer.Issue(ctx, hold, nil); apperr.CodeOf(err) != apperr.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{QuantityTotal: 1})
	issued := e.IssueFree(t, tier, uuid.New(), 1)

	if remaining, _ := e.Ledger.Availability(ctx, tier.ID); remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}

	ticketID := uuid.MustParse(issued[0].TicketID)
	if err := e.Tickets.Revoke(ctx, ticketID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if remaining, _ := e.Ledger.Availability(ctx, tier.ID); remaining != 1 {
		t.Fatalf("revoked unit should return to the tier, remaining = %d", remaining)
	}
	if err := e.Tickets.Revoke(ctx, ticketID); !errors.Is(err, tickets.ErrTicketNotActive) {
		t.Fatalf("expected ErrTicketNotActive, got %v", err)
	}
	if err := e.Tickets.Revoke(ctx, uuid.New()); !errors.Is(err, tickets.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestService_MyTicketsAndExpireEnded(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{})
	holder := uuid.New()
	e.IssueFree(t, tier, holder, 2)

	mine, err := e.Tickets.MyTickets(ctx, holder)
	if err != nil {
		t.Fatalf("my tickets: %v", err)
	}
	if len(mine) != 2 || mine[0].Token == "" {
		t.Fatalf("unexpected wallet %+v", mine)
	}

	n, err := e.Tickets.ExpireEnded(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing should expire before the event ends: n=%d err=%v", n, err)
	}

	e.Clock.Advance(29 * time.Hour)
	n, err = e.Tickets.ExpireEnded(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expire ended = %d, %v; want 2", n, err)
	}
	mine, _ = e.Tickets.MyTickets(ctx, holder)
	for _, ticket := range mine {
		if ticket.Status != tickets.StatusExpired {
			t.Fatalf("ticket %s is %s, want expired", ticket.TicketID, ticket.Status)
		}
	}
}
