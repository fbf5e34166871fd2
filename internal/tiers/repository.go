package tiers

import (
	"context"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, tier *TicketTier) error
	GetByID(ctx context.Context, id uuid.UUID) (*TicketTier, error)
	// GetForUpdate locks the tier row; ctx must carry a transaction
	GetForUpdate(ctx context.Context, id uuid.UUID) (*TicketTier, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]TicketTier, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tier *TicketTier) error {
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(tier).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*TicketTier, error) {
	var tier TicketTier
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*TicketTier, error) {
	var tier TicketTier
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]TicketTier, error) {
	var tiers []TicketTier
	err := database.Conn(ctx, r.db).
		Where("event_id = ?", eventID).
		Order("unit_price ASC, name ASC").
		Find(&tiers).Error
	return tiers, err
}
