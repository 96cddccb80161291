package database

import (
	"fmt"

	"docuchat-be/internal/model"

	"gorm.io/gorm"
)

var setupSQL = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	`CREATE EXTENSION IF NOT EXISTS vector;`,
}

// Models lists every relational table owned by the service. Vector tables are
// created by the vector store itself.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Document{},
		&model.Conversation{},
		&model.Message{},
		&model.UserUsage{},
		&model.VectorCollection{},
	}
}

// Migrate installs the extensions and brings the relational schema up to date.
// Extension failures are returned only when strict is set.
func Migrate(db *gorm.DB, strict bool) error {
	for _, stmt := range setupSQL {
		if err := db.Exec(stmt).Error; err != nil && strict {
			return fmt.Errorf("setup %q: %w", stmt, err)
		}
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
