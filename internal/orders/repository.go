package orders

import (
	"context"
	"time"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByHoldID(ctx context.Context, holdID uuid.UUID) (*Order, error)
	GetByTxnID(ctx context.Context, txnID string) (*Order, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]Order, error)
	// ListStalePending returns pending orders created before olderThan, least
	// recently reconciled first
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Order, error)
	MarkReconcileAttempt(ctx context.Context, id uuid.UUID, at time.Time) error
	// AttachTxnID sets the processor transaction id unless a different one is already stored
	AttachTxnID(ctx context.Context, id uuid.UUID, txnID string, at time.Time) (bool, error)
	SetHoldID(ctx context.Context, id, holdID uuid.UUID, at time.Time) error
	// UpdateStatus applies the transition only from one of the given states
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, at time.Time) (bool, error)
	AppendTimeline(ctx context.Context, entry *TimelineEntry) error
	Timeline(ctx context.Context, orderID uuid.UUID) ([]TimelineEntry, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByHoldID(ctx context.Context, holdID uuid.UUID) (*Order, error) {
	var order Order
	if err := database.Conn(ctx, r.db).Where("hold_id = ?", holdID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByTxnID(ctx context.Context, txnID string) (*Order, error) {
	var order Order
	if err := database.Conn(ctx, r.db).Where("processor_txn_id = ?", txnID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]Order, error) {
	var orders []Order
	err := database.Conn(ctx, r.db).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Order, error) {
	var orders []Order
	err := database.Conn(ctx, r.db).
		Where("status = ? AND created_at <= ?", StatusPaymentPending, olderThan).
		Order("reconciled_at ASC NULLS FIRST, created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *repository) MarkReconcileAttempt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ?", id).
		UpdateColumn("reconciled_at", at).Error
}

func (r *repository) AttachTxnID(ctx context.Context, id uuid.UUID, txnID string, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ? AND (processor_txn_id IS NULL OR processor_txn_id = ?)", id, txnID).
		Updates(map[string]interface{}{
			"processor_txn_id": txnID,
			"updated_at":       at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetHoldID(ctx context.Context, id, holdID uuid.UUID, at time.Time) error {
	return database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hold_id":    holdID,
			"updated_at": at,
		}).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) AppendTimeline(ctx context.Context, entry *TimelineEntry) error {
	return database.Conn(ctx, r.db).Create(entry).Error
}

func (r *repository) Timeline(ctx context.Context, orderID uuid.UUID) ([]TimelineEntry, error) {
	var entries []TimelineEntry
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
