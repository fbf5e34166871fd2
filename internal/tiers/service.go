package tiers

import (
	"context"
	"errors"
	"strings"

	"ticketing/internal/events"
	"ticketing/internal/shared/apperr"
	"ticketing/internal/shared/constants"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrTierNotFound = apperr.New(apperr.CodeNotFound, "ticket tier not found")

type Service interface {
	SetCacheService(cacheService cache.Service)
	CreateTier(ctx context.Context, eventID uuid.UUID, req CreateTierRequest) (*TierResponse, error)
	ListCatalog(ctx context.Context, eventID uuid.UUID) ([]TierResponse, error)
}

type service struct {
	repo         Repository
	eventRepo    events.Repository
	cacheService cache.Service
	log          *logger.Logger
}

func NewService(repo Repository, eventRepo events.Repository, log *logger.Logger) Service {
	return &service{repo: repo, eventRepo: eventRepo, log: log}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) CreateTier(ctx context.Context, eventID uuid.UUID, req CreateTierRequest) (*TierResponse, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, events.ErrEventNotFound
		}
		return nil, apperr.Internal("failed to load event", err)
	}
	if !req.SaleEndsAt.After(req.SaleStartsAt) {
		return nil, apperr.New(apperr.CodeValidation, "sale_ends_at must be after sale_starts_at")
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}

	tier := &TicketTier{
		EventID:       eventID,
		Name:          req.Name,
		UnitPrice:     req.UnitPrice,
		Currency:      currency,
		QuantityTotal: req.QuantityTotal,
		MaxPerOrder:   req.MaxPerOrder,
		SaleStartsAt:  req.SaleStartsAt.UTC(),
		SaleEndsAt:    req.SaleEndsAt.UTC(),
	}
	if err := s.repo.Create(ctx, tier); err != nil {
		return nil, apperr.Internal("failed to create tier", err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.Delete(ctx, constants.BuildTierCatalogKey(eventID.String())); err != nil {
			s.log.WarnContext(ctx, "tier catalog invalidation failed", "event_id", eventID, "error", err)
		}
	}

	resp := tier.ToResponse()
	return &resp, nil
}

// ListCatalog returns the static tier definitions for an event. Remaining
// capacity is served separately and never cached.
func (s *service) ListCatalog(ctx context.Context, eventID uuid.UUID) ([]TierResponse, error) {
	fetch := func() (interface{}, error) {
		tiers, err := s.repo.ListByEvent(ctx, eventID)
		if err != nil {
			return nil, apperr.Internal("failed to list tiers", err)
		}
		out := make([]TierResponse, 0, len(tiers))
		for i := range tiers {
			out = append(out, tiers[i].ToResponse())
		}
		return out, nil
	}

	if s.cacheService == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]TierResponse), nil
	}

	var catalog []TierResponse
	key := constants.BuildTierCatalogKey(eventID.String())
	if err := s.cacheService.GetOrSet(ctx, key, constants.TTL_TIER_CATALOG, fetch, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}
