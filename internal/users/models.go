package users

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleScanner Role = "SCANNER"
)

// Profile mirrors the identity platform's user record; the engine only reads it
type Profile struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DisplayName string    `json:"display_name" gorm:"not null;size:255"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Role        Role      `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}
