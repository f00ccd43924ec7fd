package database

import (
	log "github.com/sirupsen/logrus"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Warn("Failed to auto-migrate models: ", err)
	}

	return db, nil
}

// Migrate auto-migrates the core models. Exposed separately so tests
// can run it against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Request{},
		&model.RequestItem{},
	)
}
