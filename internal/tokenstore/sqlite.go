package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// tokenRecord is the database model backing SQLiteStore. A single row (id=1)
// holds the current pair; reads still order by updated_at so the newest pair
// wins even if older rows linger from earlier schema generations.
type tokenRecord struct {
	ID           uint   `gorm:"primaryKey"`
	AccessToken  string `gorm:"not null"`
	RefreshToken string `gorm:"not null"`
	UpdatedAt    time.Time
}

func (tokenRecord) TableName() string { return "tokens" }

// SQLiteStore persists the token pair in a SQLite database file.
type SQLiteStore struct {
	db *gorm.DB
}

// Compile-time check to ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and migrates
// the tokens table. Parent directories are created with 0700 permissions.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if err := db.AutoMigrate(&tokenRecord{}); err != nil {
		return nil, &UnavailableError{Err: err}
	}

	return &SQLiteStore{db: db}, nil
}

// LoadCurrent returns the most recently updated pair.
func (s *SQLiteStore) LoadCurrent(ctx context.Context) (TokenPair, error) {
	var rec tokenRecord
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, &UnavailableError{Err: err}
	}

	return TokenPair{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// Save upserts the pair as the single current row. The upsert replaces both
// token columns in one statement, so concurrent readers see either the old
// pair or the new one, never a mix.
func (s *SQLiteStore) Save(ctx context.Context, pair TokenPair) error {
	rec := tokenRecord{
		ID:           1,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UpdatedAt:    time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return &UnavailableError{Err: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
