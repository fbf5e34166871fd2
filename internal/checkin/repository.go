package checkin

import (
	"context"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Append(ctx context.Context, row *Checkin) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]Checkin, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, row *Checkin) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(row).Error
}

func (r *repository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]Checkin, error) {
	var rows []Checkin
	err := database.Conn(ctx, r.db).
		Where("ticket_id = ?", ticketID).
		Order("scanned_at ASC").
		Find(&rows).Error
	return rows, err
}
