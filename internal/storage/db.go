// Package storage holds the gorm-backed repositories. Rooms are stored
// document-style: one row per room with the membership collections as
// JSON columns, replaced wholesale on every save.
package storage

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parley/internal/domain"
)

// Open opens the sqlite database at path and migrates the schema.
// TranslateError maps driver unique-constraint failures onto
// gorm.ErrDuplicatedKey so repositories can detect name collisions.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Room{}, &domain.Message{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
