package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ticketing/internal/checkin"
	"ticketing/internal/notifications"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/testutil"
	"ticketing/internal/tickets"

	"github.com/google/uuid"
)

func issueOne(t *testing.T, e *testutil.Engine) tickets.TicketView {
	t.Helper()
	holder := e.SeedProfile(t, "Ada Lovelace")
	issued := e.IssueFree(t, e.SeedTier(t, testutil.TierOptions{}), holder, 1)
	return issued[0]
}

func TestScanner_Outcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("first scan succeeds then reports already scanned", func(t *testing.T) {
		e := testutil.NewEngine(t)
		ticket := issueOne(t, e)

		first, err := e.Scanner.Scan(ctx, ticket.Token, "door-1")
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if first.Outcome != checkin.OutcomeSuccess || first.TicketID != ticket.TicketID || first.HolderDisplayName != "Ada Lovelace" {
			t.Fatalf("unexpected result %+v", first)
		}

		second, err := e.Scanner.Scan(ctx, ticket.Token, "door-2")
		if err != nil {
			t.Fatalf("rescan: %v", err)
		}
		if second.Outcome != checkin.OutcomeAlreadyScanned {
			t.Fatalf("rescan outcome = %s", second.Outcome)
		}
		if n := len(e.Store.CheckinRows()); n != 2 {
			t.Fatalf("recorded %d checkins, want 2", n)
		}
		if e.Publisher.Count(notifications.EventTicketScanned) != 1 {
			t.Fatalf("ticket.scanned should be published once")
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		e := testutil.NewEngine(t)
		ticket := issueOne(t, e)
		tampered := []byte(ticket.Token)
		tampered[3] ^= 0x01

		result, err := e.Scanner.Scan(ctx, string(tampered), "door-1")
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if result.Outcome != checkin.OutcomeInvalidSignature || result.TicketID != "" {
			t.Fatalf("unexpected result %+v", result)
		}
		rows := e.Store.CheckinRows()
		if len(rows) != 1 || rows[0].TicketID != nil {
			t.Fatalf("expected one audit row without ticket, got %+v", rows)
		}
	})

	t.Run("garbage is a parse error", func(t *testing.T) {
		e := testutil.NewEngine(t)
		result, err := e.Scanner.Scan(ctx, "not-a-ticket", "door-1")
		if err != nil || result.Outcome != checkin.OutcomeParseError {
			t.Fatalf("scan = %+v, %v", result, err)
		}
	})

	t.Run("validly signed but unknown ticket", func(t *testing.T) {
		e := testutil.NewEngine(t)
		token, err := e.Signer.Issue(uuid.New(), uuid.New(), e.Clock.Now())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		result, err := e.Scanner.Scan(ctx, token, "door-1")
		if err != nil || result.Outcome != checkin.OutcomeNotFound {
			t.Fatalf("scan = %+v, %v", result, err)
		}
	})

	t.Run("revoked ticket", func(t *testing.T) {
		e := testutil.NewEngine(t)
		ticket := issueOne(t, e)
		if err := e.Tickets.Revoke(ctx, uuid.MustParse(ticket.TicketID)); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		result, err := e.Scanner.Scan(ctx, ticket.Token, "door-1")
		if err != nil || result.Outcome != checkin.OutcomeRevoked {
			t.Fatalf("scan = %+v, %v", result, err)
		}
	})

	t.Run("expired ticket", func(t *testing.T) {
		e := testutil.NewEngine(t)
		ticket := issueOne(t, e)
		e.Clock.Advance(30 * time.Hour)
		if _, err := e.Tickets.ExpireEnded(ctx); err != nil {
			t.Fatalf("expire: %v", err)
		}
		result, err := e.Scanner.Scan(ctx, ticket.Token, "door-1")
		if err != nil || result.Outcome != checkin.OutcomeExpired {
			t.Fatalf("scan = %+v, %v", result, err)
		}
	})

	t.Run("scanner id is required", func(t *testing.T) {
		e := testutil.NewEngine(t)
		if _, err := e.Scanner.Scan(ctx, "x", ""); !errors.Is(err, checkin.ErrScannerRequired) {
			t.Fatalf("expected ErrScannerRequired, got %v", err)
		}
	})
}

func TestScanner_RaceAtTheDoor(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	ticket := issueOne(t, e)

	var (
		wg       sync.WaitGroup
		outcomes = make([]checkin.Outcome, 2)
	)
	start := make(chan struct{})
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			result, err := e.Scanner.Scan(ctx, ticket.Token, []string{"door-a", "door-b"}[i])
			if err != nil {
				t.Errorf("scan %d: %v", i, err)
				return
			}
			outcomes[i] = result.Outcome
		}(i)
	}
	close(start)
	wg.Wait()

	success, already := 0, 0
	for _, o := range outcomes {
		switch o {
		case checkin.OutcomeSuccess:
			success++
		case checkin.OutcomeAlreadyScanned:
			already++
		}
	}
	if success != 1 || already != 1 {
		t.Fatalf("outcomes = %v, want one success and one already_scanned", outcomes)
	}
	if n := len(e.Store.CheckinRows()); n != 2 {
		t.Fatalf("recorded %d checkins, want 2", n)
	}
}

func TestScanner_AuditFailureLeavesTicketActive(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	ticket := issueOne(t, e)

	e.Store.FailNext("checkins.Append", errors.New("disk full"))
	if _, err := e.Scanner.Scan(ctx, ticket.Token, "door-1"); apperr.CodeOf(err) != apperr.CodeInternal {
		t.Fatalf("expected internal_error, got %v", err)
	}

	stored, err := e.Repos.Tickets.GetByID(ctx, uuid.MustParse(ticket.TicketID))
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if stored.Status != tickets.StatusActive {
		t.Fatalf("ticket is %s after a failed audit write, want active", stored.Status)
	}

	result, err := e.Scanner.Scan(ctx, ticket.Token, "door-1")
	if err != nil || result.Outcome != checkin.OutcomeSuccess {
		t.Fatalf("retry = %+v, %v", result, err)
	}
}

func TestScanner_History(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewEngine(t)
	ticket := issueOne(t, e)
	for _, door := range []string{"door-1", "door-2", "door-3"} {
		if _, err := e.Scanner.Scan(ctx, ticket.Token, door); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}

	rows, err := e.Scanner.History(ctx, uuid.MustParse(ticket.TicketID))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 3 || rows[0].Outcome != checkin.OutcomeSuccess || rows[2].Outcome != checkin.OutcomeAlreadyScanned {
		t.Fatalf("unexpected history %+v", rows)
	}
}
