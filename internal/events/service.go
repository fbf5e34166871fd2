package events

import (
	"context"
	"errors"

	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/constants"
	"ticketing/pkg/cache"
	"ticketing/pkg/clock"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEventNotFound = apperr.New(apperr.CodeNotFound, "event not found")

type Service interface {
	SetCacheService(cacheService cache.Service)
	CreateEvent(ctx context.Context, adminID uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error)
}

type service struct {
	repo         Repository
	clock        clock.Clock
	cacheService cache.Service
	log          *logger.Logger
}

func NewService(repo Repository, clk clock.Clock, log *logger.Logger) Service {
	return &service{repo: repo, clock: clk, log: log}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) CreateEvent(ctx context.Context, adminID uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	if !req.EndsAt.After(req.StartsAt) {
		return nil, apperr.New(apperr.CodeValidation, "ends_at must be after starts_at")
	}

	event := &Event{
		Name:      req.Name,
		Venue:     req.Venue,
		StartsAt:  req.StartsAt.UTC(),
		EndsAt:    req.EndsAt.UTC(),
		CreatedBy: adminID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, apperr.Internal("failed to create event", err)
	}

	resp := event.ToResponse(s.clock.Now())
	return &resp, nil
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	fetch := func() (interface{}, error) {
		event, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, apperr.Internal("failed to load event", err)
		}
		return event, nil
	}

	var event Event
	if s.cacheService != nil {
		err := s.cacheService.GetOrSet(ctx, constants.BuildEventDetailKey(id.String()), constants.TTL_EVENT_DETAIL, fetch, &event)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				return nil, ErrEventNotFound
			}
			s.log.WarnContext(ctx, "event lookup failed", "event_id", id, "error", err)
			return nil, err
		}
	} else {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		event = *v.(*Event)
	}

	resp := event.ToResponse(s.clock.Now())
	return &resp, nil
}
