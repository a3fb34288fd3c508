package database

import (
	"gatelist-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when running behind a pooler like PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all models; the composite unique indexes
// on Guests and Tags are what back the per-couple uniqueness invariants.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Couple{},
		&models.Operator{},
		&models.Guest{},
		&models.Tag{},
	)
}
