package tickets

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/shared/apperr"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound  = apperr.New(apperr.CodeNotFound, "ticket not found")
	ErrTicketNotActive = apperr.New(apperr.CodeConflict, "ticket is not active")
)

type Service interface {
	MyTickets(ctx context.Context, holderID uuid.UUID) ([]TicketView, error)
	Revoke(ctx context.Context, ticketID uuid.UUID) error
	ExpireEnded(ctx context.Context) (int, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
	log   *logger.Logger
}

func NewService(repo Repository, clk clock.Clock, log *logger.Logger) Service {
	return &service{repo: repo, clock: clk, log: log}
}

func (s *service) MyTickets(ctx context.Context, holderID uuid.UUID) ([]TicketView, error) {
	owned, err := s.repo.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, apperr.Internal("failed to list tickets", err)
	}
	views := make([]TicketView, 0, len(owned))
	for i := range owned {
		views = append(views, owned[i].ToView())
	}
	return views, nil
}

// Revoke moves an active ticket to revoked, returning its unit to the tier
func (s *service) Revoke(ctx context.Context, ticketID uuid.UUID) error {
	ok, err := s.repo.Revoke(ctx, ticketID, s.clock.Now())
	if err != nil {
		return apperr.Internal("failed to revoke ticket", err)
	}
	if ok {
		s.log.InfoContext(ctx, "Ticket Revoked", "ticket_id", ticketID)
		return nil
	}

	if _, err := s.repo.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTicketNotFound
		}
		return apperr.Internal("failed to load ticket", err)
	}
	return ErrTicketNotActive
}

// ExpireEnded expires active tickets of events that have finished
func (s *service) ExpireEnded(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.repo.ExpireEnded(ctx, s.clock.Now())
	if err != nil {
		return 0, apperr.Internal("failed to expire tickets", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "Tickets Expired", "count", n, "duration", time.Since(start))
	}
	return n, nil
}
