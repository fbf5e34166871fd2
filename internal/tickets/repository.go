package tickets

import (
	"context"
	"time"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateBatch(ctx context.Context, tickets []Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByToken(ctx context.Context, token string) (*Ticket, error)
	ListByHolder(ctx context.Context, holderID uuid.UUID) ([]Ticket, error)
	ListByHold(ctx context.Context, holdID uuid.UUID) ([]Ticket, error)
	// MarkScanned applies active -> scanned only if the ticket is still active
	MarkScanned(ctx context.Context, id uuid.UUID, at time.Time, scannerID string) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ExpireEnded(ctx context.Context, now time.Time) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatch(ctx context.Context, tickets []Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Create(&tickets).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Ticket, error) {
	var ticket Ticket
	if err := database.Conn(ctx, r.db).Where("token = ?", token).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListByHolder(ctx context.Context, holderID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := database.Conn(ctx, r.db).
		Where("holder_id = ?", holderID).
		Order("issued_at DESC, seq ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repository) ListByHold(ctx context.Context, holdID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := database.Conn(ctx, r.db).
		Where("hold_id = ?", holdID).
		Order("seq ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repository) MarkScanned(ctx context.Context, id uuid.UUID, at time.Time, scannerID string) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{
			"status":        StatusScanned,
			"checked_in_at": at,
			"checked_in_by": scannerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("id = ? AND status = ?", id, StatusActive).
		Updates(map[string]interface{}{
			"status":     StatusRevoked,
			"revoked_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExpireEnded(ctx context.Context, now time.Time) (int, error) {
	ended := r.db.Table("events").Select("id").Where("ends_at <= ?", now)
	result := database.Conn(ctx, r.db).
		Model(&Ticket{}).
		Where("status = ? AND event_id IN (?)", StatusActive, ended).
		Update("status", StatusExpired)
	return int(result.RowsAffected), result.Error
}
