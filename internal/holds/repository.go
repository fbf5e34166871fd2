package holds

import (
	"context"
	"time"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the hold table plus the ticket count the capacity rule needs.
// Methods that lock rows expect ctx to carry a transaction.
type Repository interface {
	Create(ctx context.Context, hold *Hold) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hold, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Hold, error)
	ActiveQuantity(ctx context.Context, tierID uuid.UUID, now time.Time) (int, error)
	RequesterActiveQuantity(ctx context.Context, tierID, requesterID uuid.UUID, now time.Time) (int, error)
	IssuedCount(ctx context.Context, tierID uuid.UUID) (int, error)
	// Transition applies from -> to only if the hold is still in from
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error)
	SetReplacedBy(ctx context.Context, id, replacement uuid.UUID) error
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]Hold, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, hold *Hold) error {
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(hold).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&hold).Error; err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) ActiveQuantity(ctx context.Context, tierID uuid.UUID, now time.Time) (int, error) {
	var total int
	err := database.Conn(ctx, r.db).
		Model(&Hold{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tier_id = ? AND status = ? AND expires_at > ?", tierID, StatusActive, now).
		Scan(&total).Error
	return total, err
}

func (r *repository) RequesterActiveQuantity(ctx context.Context, tierID, requesterID uuid.UUID, now time.Time) (int, error) {
	var total int
	err := database.Conn(ctx, r.db).
		Model(&Hold{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tier_id = ? AND requester_id = ? AND status = ? AND expires_at > ?", tierID, requesterID, StatusActive, now).
		Scan(&total).Error
	return total, err
}

func (r *repository) IssuedCount(ctx context.Context, tierID uuid.UUID) (int, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Table("tickets").
		Where("tier_id = ? AND status <> ?", tierID, "revoked").
		Count(&count).Error
	return int(count), err
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Hold{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetReplacedBy(ctx context.Context, id, replacement uuid.UUID) error {
	return database.Conn(ctx, r.db).
		Model(&Hold{}).
		Where("id = ?", id).
		Update("replaced_by", replacement).Error
}

func (r *repository) ListLapsed(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	var lapsed []Hold
	err := database.Conn(ctx, r.db).
		Where("status = ? AND expires_at <= ?", StatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&lapsed).Error
	return lapsed, err
}
