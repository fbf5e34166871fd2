package tickets

import (
	"context"
	"fmt"

	"ticketing/internal/holds"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/database"
	"ticketing/internal/signer"
	"ticketing/pkg/clock"

	"github.com/google/uuid"
)

var ErrAlreadyIssued = apperr.New(apperr.CodeConflict, "tickets already issued for this hold")

// Issuer mints one signed ticket per unit of a converted hold. It writes
// through ctx, so it joins the transaction that converted the hold.
type Issuer struct {
	repo   Repository
	signer *signer.Signer
	clock  clock.Clock
}

func NewIssuer(repo Repository, s *signer.Signer, clk clock.Clock) *Issuer {
	return &Issuer{repo: repo, signer: s, clock: clk}
}

func (i *Issuer) Issue(ctx context.Context, hold *holds.Hold, orderID *uuid.UUID) ([]Ticket, error) {
	if hold.Status != holds.StatusConverted {
		return nil, apperr.New(apperr.CodeConflict, fmt.Sprintf("hold %s is %s, not converted", hold.ID, hold.Status))
	}

	now := i.clock.Now()
	issued := make([]Ticket, 0, hold.Quantity)
	for seq := 1; seq <= hold.Quantity; seq++ {
		id := uuid.New()
		token, err := i.signer.Issue(id, hold.EventID, now)
		if err != nil {
			return nil, apperr.Internal("failed to sign ticket", err)
		}
		issued = append(issued, Ticket{
			ID:       id,
			OrderID:  orderID,
			HoldID:   hold.ID,
			Seq:      seq,
			TierID:   hold.TierID,
			EventID:  hold.EventID,
			HolderID: hold.RequesterID,
			Token:    token,
			Status:   StatusActive,
			IssuedAt: now,
		})
	}

	if err := i.repo.CreateBatch(ctx, issued); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyIssued.WithCause(err)
		}
		return nil, apperr.Internal("failed to store tickets", err)
	}
	return issued, nil
}
