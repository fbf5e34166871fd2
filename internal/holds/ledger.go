package holds

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/database"
	"ticketing/internal/tiers"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultHoldTTL = 10 * time.Minute

var (
	ErrInvalidQuantity      = apperr.New(apperr.CodeValidation, "quantity must be positive")
	ErrSoldOut              = apperr.New(apperr.CodeSoldOut, "not enough tickets remaining")
	ErrOverLimit            = apperr.New(apperr.CodeOverLimit, "quantity exceeds the per-order limit")
	ErrSaleClosed           = apperr.New(apperr.CodeSaleClosed, "tier is not on sale")
	ErrHoldNotFound         = apperr.New(apperr.CodeNotFound, "hold not found")
	ErrHoldNotActive        = apperr.New(apperr.CodeConflict, "hold is not active")
	ErrHoldAlreadyConverted = apperr.New(apperr.CodeConflict, "hold already converted")
	ErrInventoryBusy        = apperr.New(apperr.CodeConflict, "inventory is busy, retry")
)

// Ledger owns every hold state transition. Each mutation runs in one
// transaction that first locks the tier row, so capacity is computed and
// consumed atomically.
type Ledger struct {
	tx       database.Transactor
	repo     Repository
	tierRepo tiers.Repository
	clock    clock.Clock
	ttl      time.Duration
	log      *logger.Logger
}

func NewLedger(tx database.Transactor, repo Repository, tierRepo tiers.Repository, clk clock.Clock, ttl time.Duration, log *logger.Logger) *Ledger {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &Ledger{
		tx:       tx,
		repo:     repo,
		tierRepo: tierRepo,
		clock:    clk,
		ttl:      ttl,
		log:      log,
	}
}

// Reserve places a hold for quantity units of a tier
func (l *Ledger) Reserve(ctx context.Context, tierID, requesterID uuid.UUID, quantity int) (*Hold, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var hold *Hold
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		tier, err := l.lockTier(ctx, tierID)
		if err != nil {
			return err
		}

		now := l.clock.Now()
		if !tier.OnSale(now) {
			return ErrSaleClosed
		}
		if quantity > tier.MaxPerOrder {
			return ErrOverLimit
		}

		held, err := l.repo.RequesterActiveQuantity(ctx, tierID, requesterID, now)
		if err != nil {
			return apperr.Internal("failed to read requester holds", err)
		}
		if held+quantity > tier.MaxPerOrder {
			return ErrOverLimit
		}

		remaining, err := l.remaining(ctx, tier, now)
		if err != nil {
			return err
		}
		if remaining < quantity {
			return ErrSoldOut
		}

		hold = &Hold{
			ID:          uuid.New(),
			TierID:      tier.ID,
			EventID:     tier.EventID,
			RequesterID: requesterID,
			Quantity:    quantity,
			Status:      StatusActive,
			CreatedAt:   now,
			ExpiresAt:   now.Add(l.ttl),
		}
		if err := l.repo.Create(ctx, hold); err != nil {
			return apperr.Internal("failed to create hold", err)
		}
		return nil
	})
	if err != nil {
		err = mapLockErr(err)
		metrics.HoldOutcome(string(apperr.CodeOf(err)))
		l.log.LogHoldRejected(ctx, tierID.String(), requesterID.String(), string(apperr.CodeOf(err)))
		return nil, err
	}

	metrics.HoldOutcome("reserved")
	l.log.LogHoldReserved(ctx, hold.ID.String(), tierID.String(), requesterID.String(), quantity)
	return hold, nil
}

// Release cancels an active hold on behalf of its owner. Releasing a hold
// that is already cancelled is a no-op.
func (l *Ledger) Release(ctx context.Context, holdID, requesterID uuid.UUID) error {
	hold, err := l.Get(ctx, holdID)
	if err != nil {
		return err
	}
	if hold.RequesterID != requesterID {
		return apperr.ErrForbidden
	}

	switch hold.Status {
	case StatusCancelled:
		return nil
	case StatusActive:
	default:
		return ErrHoldNotActive
	}

	ok, err := l.repo.Transition(ctx, holdID, StatusActive, StatusCancelled, l.clock.Now())
	if err != nil {
		return apperr.Internal("failed to release hold", err)
	}
	if !ok {
		current, err := l.Get(ctx, holdID)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return nil
		}
		return ErrHoldNotActive
	}
	return nil
}

// Convert moves an unexpired active hold to converted. Called inside the
// caller's transaction when tickets are issued in the same step.
func (l *Ledger) Convert(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	var hold *Hold
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := l.Get(ctx, holdID)
		if err != nil {
			return err
		}
		if _, err := l.lockTier(ctx, current.TierID); err != nil {
			return err
		}
		current, err = l.repo.GetForUpdate(ctx, holdID)
		if err != nil {
			return apperr.Internal("failed to lock hold", err)
		}

		now := l.clock.Now()
		switch {
		case current.Status == StatusConverted:
			return ErrHoldAlreadyConverted
		case !current.IsLive(now):
			return ErrHoldNotActive
		}

		ok, err := l.repo.Transition(ctx, holdID, StatusActive, StatusConverted, now)
		if err != nil {
			return apperr.Internal("failed to convert hold", err)
		}
		if !ok {
			return ErrHoldNotActive
		}
		current.Status = StatusConverted
		current.ResolvedAt = &now
		hold = current
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}
	return hold, nil
}

// Expire moves an active hold to expired. It reports whether this call
// performed the transition.
func (l *Ledger) Expire(ctx context.Context, holdID uuid.UUID) (bool, error) {
	ok, err := l.repo.Transition(ctx, holdID, StatusActive, StatusExpired, l.clock.Now())
	if err != nil {
		return false, apperr.Internal("failed to expire hold", err)
	}
	return ok, nil
}

// Reacquire replaces a hold that lapsed before its payment settled. The
// replacement is capacity-checked under the tier lock, linked from the old
// hold through replaced_by, and returned already converted. The per-order
// limit is not re-applied because the quantity was admitted once.
func (l *Ledger) Reacquire(ctx context.Context, lapsedID uuid.UUID) (*Hold, error) {
	var replacement *Hold
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		lapsed, err := l.Get(ctx, lapsedID)
		if err != nil {
			return err
		}
		tier, err := l.lockTier(ctx, lapsed.TierID)
		if err != nil {
			return err
		}
		lapsed, err = l.repo.GetForUpdate(ctx, lapsedID)
		if err != nil {
			return apperr.Internal("failed to lock hold", err)
		}

		now := l.clock.Now()
		switch {
		case lapsed.Status == StatusConverted:
			return ErrHoldAlreadyConverted
		case lapsed.IsLive(now):
			if _, err := l.repo.Transition(ctx, lapsed.ID, StatusActive, StatusConverted, now); err != nil {
				return apperr.Internal("failed to convert hold", err)
			}
			lapsed.Status = StatusConverted
			lapsed.ResolvedAt = &now
			replacement = lapsed
			return nil
		case lapsed.Status == StatusActive:
			if _, err := l.repo.Transition(ctx, lapsed.ID, StatusActive, StatusExpired, now); err != nil {
				return apperr.Internal("failed to expire hold", err)
			}
		}

		remaining, err := l.remaining(ctx, tier, now)
		if err != nil {
			return err
		}
		if remaining < lapsed.Quantity {
			return ErrSoldOut
		}

		replacement = &Hold{
			ID:          uuid.New(),
			TierID:      lapsed.TierID,
			EventID:     lapsed.EventID,
			RequesterID: lapsed.RequesterID,
			Quantity:    lapsed.Quantity,
			Status:      StatusConverted,
			CreatedAt:   now,
			ExpiresAt:   now.Add(l.ttl),
			ResolvedAt:  &now,
		}
		if err := l.repo.Create(ctx, replacement); err != nil {
			return apperr.Internal("failed to create replacement hold", err)
		}
		if err := l.repo.SetReplacedBy(ctx, lapsed.ID, replacement.ID); err != nil {
			return apperr.Internal("failed to link replacement hold", err)
		}
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}
	return replacement, nil
}

// Get loads a hold by id
func (l *Ledger) Get(ctx context.Context, holdID uuid.UUID) (*Hold, error) {
	hold, err := l.repo.GetByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, apperr.Internal("failed to load hold", err)
	}
	return hold, nil
}

// Availability derives remaining capacity on read; it is never cached
func (l *Ledger) Availability(ctx context.Context, tierID uuid.UUID) (int, error) {
	tier, err := l.tierRepo.GetByID(ctx, tierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, tiers.ErrTierNotFound
		}
		return 0, apperr.Internal("failed to load tier", err)
	}
	remaining, err := l.remaining(ctx, tier, l.clock.Now())
	if err != nil {
		return 0, err
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ListLapsed returns active holds whose TTL has passed
func (l *Ledger) ListLapsed(ctx context.Context, limit int) ([]Hold, error) {
	lapsed, err := l.repo.ListLapsed(ctx, l.clock.Now(), limit)
	if err != nil {
		return nil, apperr.Internal("failed to list lapsed holds", err)
	}
	return lapsed, nil
}

func (l *Ledger) lockTier(ctx context.Context, tierID uuid.UUID) (*tiers.TicketTier, error) {
	tier, err := l.tierRepo.GetForUpdate(ctx, tierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tiers.ErrTierNotFound
		}
		return nil, apperr.Internal("failed to lock tier", err)
	}
	return tier, nil
}

// remaining = quantity_total - live holds - non-revoked tickets
func (l *Ledger) remaining(ctx context.Context, tier *tiers.TicketTier, now time.Time) (int, error) {
	held, err := l.repo.ActiveQuantity(ctx, tier.ID, now)
	if err != nil {
		return 0, apperr.Internal("failed to sum active holds", err)
	}
	issued, err := l.repo.IssuedCount(ctx, tier.ID)
	if err != nil {
		return 0, apperr.Internal("failed to count issued tickets", err)
	}
	return tier.QuantityTotal - held - issued, nil
}

func mapLockErr(err error) error {
	if database.IsLockTimeout(err) {
		return ErrInventoryBusy.WithCause(err)
	}
	return err
}
