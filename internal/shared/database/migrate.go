package database

import (
	"gorm.io/gorm"
)

// Migrate auto-migrates the given models
func Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) == 0 {
		return nil
	}
	return db.AutoMigrate(models...)
}
