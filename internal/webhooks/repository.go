package webhooks

import (
	"context"
	"time"

	"ticketing/internal/shared/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Record inserts the delivery if it is new and returns the stored row
	Record(ctx context.Context, event *ProcessorEvent) (*ProcessorEvent, bool, error)
	MarkProcessed(ctx context.Context, id uint64, at time.Time, processingError string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, event *ProcessorEvent) (*ProcessorEvent, bool, error) {
	result := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return event, true, nil
	}

	var existing ProcessorEvent
	err := database.Conn(ctx, r.db).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *repository) MarkProcessed(ctx context.Context, id uint64, at time.Time, processingError string) error {
	return database.Conn(ctx, r.db).
		Model(&ProcessorEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     at,
			"processing_error": processingError,
		}).Error
}
