package holds_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ticketing/internal/holds"
	"ticketing/internal/testutil"

	"github.com/google/uuid"
)

func TestLedgerPostgres_NoOversell(t *testing.T) {
	e := testutil.NewPostgresEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{QuantityTotal: 7, MaxPerOrder: 2})

	const callers = 24
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		soldOut int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hold, err := e.Ledger.Reserve(context.Background(), tier.ID, uuid.New(), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted += hold.Quantity
			case errors.Is(err, holds.ErrSoldOut):
				soldOut++
			case errors.Is(err, holds.ErrInventoryBusy):
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}()
	}
	wg.Wait()

	if granted > tier.QuantityTotal {
		t.Fatalf("granted %d units from a tier of %d", granted, tier.QuantityTotal)
	}
	if soldOut == 0 {
		t.Fatalf("expected some callers to see sold_out")
	}
	remaining, err := e.Ledger.Availability(context.Background(), tier.ID)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if remaining != tier.QuantityTotal-granted {
		t.Fatalf("remaining = %d, want %d", remaining, tier.QuantityTotal-granted)
	}
}

func TestLedgerPostgres_ReserveConvertRelease(t *testing.T) {
	ctx := context.Background()
	e := testutil.NewPostgresEngine(t)
	tier := e.SeedTier(t, testutil.TierOptions{QuantityTotal: 3, MaxPerOrder: 3})
	requester := uuid.New()

	kept, err := e.Ledger.Reserve(ctx, tier.ID, requester, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), 2); !errors.Is(err, holds.ErrSoldOut) {
		t.Fatalf("expected sold_out, got %v", err)
	}

	if err := e.Ledger.Release(ctx, kept.ID, requester); err != nil {
		t.Fatalf("release: %v", err)
	}
	second, err := e.Ledger.Reserve(ctx, tier.ID, uuid.New(), 3)
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	converted, err := e.Ledger.Convert(ctx, second.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if converted.Status != holds.StatusConverted {
		t.Fatalf("status = %s", converted.Status)
	}
	if _, err := e.Ledger.Convert(ctx, second.ID); !errors.Is(err, holds.ErrHoldAlreadyConverted) {
		t.Fatalf("expected already converted, got %v", err)
	}
}
