package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sortit/internal/config"
	"sortit/internal/progress"
	"sortit/internal/session"
)

var DB *gorm.DB

func Init(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	log.Printf("Database connected and migrated")
	return nil
}

// Migrate runs the schema migrations for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&session.Session{}, &session.Message{}); err != nil {
		return err
	}
	return db.AutoMigrate(&progress.Record{})
}
