package checkin

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/notifications"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/database"
	"ticketing/internal/signer"
	"ticketing/internal/tickets"
	"ticketing/internal/users"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrScannerRequired = apperr.New(apperr.CodeValidation, "scanner id is required")

// Scanner redeems admission tokens at the door
type Scanner struct {
	tx        database.Transactor
	repo      Repository
	tickets   tickets.Repository
	users     users.Repository
	signer    *signer.Signer
	publisher notifications.Publisher
	clock     clock.Clock
	log       *logger.Logger
}

func NewScanner(tx database.Transactor, repo Repository, ticketRepo tickets.Repository, userRepo users.Repository, s *signer.Signer, publisher notifications.Publisher, clk clock.Clock, log *logger.Logger) *Scanner {
	if publisher == nil {
		publisher = notifications.NopPublisher{}
	}
	return &Scanner{
		tx:        tx,
		repo:      repo,
		tickets:   ticketRepo,
		users:     userRepo,
		signer:    s,
		publisher: publisher,
		clock:     clk,
		log:       log,
	}
}

// Scan verifies a token and, for an active ticket, marks it scanned. Every
// call writes exactly one audit row; an error is returned only when that row
// or the ticket lookup could not be stored or read.
func (s *Scanner) Scan(ctx context.Context, token, scannerID string) (*ScanResult, error) {
	if scannerID == "" {
		return nil, ErrScannerRequired
	}
	start := time.Now()

	result, err := s.scan(ctx, token, scannerID)
	if err != nil {
		metrics.Scan(string(apperr.CodeInternal), time.Since(start))
		s.log.ErrorContext(ctx, "Scan Failed", "scanner_id", scannerID, "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.Scan(string(result.Outcome), elapsed)
	s.log.LogScan(ctx, scannerID, result.TicketID, string(result.Outcome), elapsed)
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, token, scannerID string) (*ScanResult, error) {
	verification := s.signer.Verify(token)
	if !verification.Valid {
		outcome := OutcomeParseError
		if verification.Reason == signer.ReasonInvalidSignature {
			outcome = OutcomeInvalidSignature
		}
		return s.record(ctx, nil, scannerID, outcome)
	}

	ticket, err := s.tickets.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.record(ctx, nil, scannerID, OutcomeNotFound)
		}
		return nil, apperr.Internal("failed to look up ticket", err)
	}

	if ticket.Status != tickets.StatusActive {
		return s.recordTicket(ctx, ticket, scannerID, outcomeFor(ticket.Status))
	}

	var outcome Outcome
	now := s.clock.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		won, err := s.tickets.MarkScanned(ctx, ticket.ID, now, scannerID)
		if err != nil {
			return apperr.Internal("failed to mark ticket scanned", err)
		}
		outcome = OutcomeSuccess
		if !won {
			current, err := s.tickets.GetByID(ctx, ticket.ID)
			if err != nil {
				return apperr.Internal("failed to re-read ticket", err)
			}
			if current.Status == tickets.StatusActive {
				return apperr.Internal("ticket stayed active after guarded update", nil)
			}
			outcome = outcomeFor(current.Status)
		}
		return s.appendRow(ctx, &ticket.ID, scannerID, outcome, now)
	})
	if err != nil {
		return nil, err
	}

	if outcome == OutcomeSuccess {
		s.publisher.Publish(ctx, notifications.NewLifecycleEvent(notifications.EventTicketScanned, ticket.ID.String(), scannerID, now, map[string]interface{}{
			"event_id":  ticket.EventID.String(),
			"holder_id": ticket.HolderID.String(),
		}))
	}
	return s.result(ctx, ticket, outcome), nil
}

// History lists the audit rows of a ticket, oldest first
func (s *Scanner) History(ctx context.Context, ticketID uuid.UUID) ([]Checkin, error) {
	rows, err := s.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperr.Internal("failed to load check-in history", err)
	}
	return rows, nil
}

func (s *Scanner) record(ctx context.Context, ticketID *uuid.UUID, scannerID string, outcome Outcome) (*ScanResult, error) {
	if err := s.appendRow(ctx, ticketID, scannerID, outcome, s.clock.Now()); err != nil {
		return nil, err
	}
	return &ScanResult{Outcome: outcome}, nil
}

func (s *Scanner) recordTicket(ctx context.Context, ticket *tickets.Ticket, scannerID string, outcome Outcome) (*ScanResult, error) {
	if err := s.appendRow(ctx, &ticket.ID, scannerID, outcome, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.result(ctx, ticket, outcome), nil
}

func (s *Scanner) appendRow(ctx context.Context, ticketID *uuid.UUID, scannerID string, outcome Outcome, at time.Time) error {
	err := s.repo.Append(ctx, &Checkin{
		TicketID:  ticketID,
		ScannerID: scannerID,
		ScannedAt: at,
		Outcome:   outcome,
	})
	if err != nil {
		return apperr.Internal("failed to write check-in audit row", err)
	}
	return nil
}

func (s *Scanner) result(ctx context.Context, ticket *tickets.Ticket, outcome Outcome) *ScanResult {
	res := &ScanResult{Outcome: outcome, TicketID: ticket.ID.String()}
	name, err := s.users.DisplayName(ctx, ticket.HolderID)
	if err != nil {
		s.log.WarnContext(ctx, "Holder Lookup Failed", "ticket_id", ticket.ID, "error", err)
	}
	res.HolderDisplayName = name
	return res
}

func outcomeFor(status tickets.Status) Outcome {
	switch status {
	case tickets.StatusScanned:
		return OutcomeAlreadyScanned
	case tickets.StatusRevoked:
		return OutcomeRevoked
	case tickets.StatusExpired:
		return OutcomeExpired
	default:
		return OutcomeNotFound
	}
}
