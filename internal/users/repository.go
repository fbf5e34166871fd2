package users

import (
	"context"

	"ticketing/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// DisplayName returns "" when the profile is unknown
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, profile *Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(profile).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var profile Profile
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) DisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	var names []string
	err := database.Conn(ctx, r.db).
		Model(&Profile{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("display_name", &names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}
