package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// record is one stored macro row
type record struct {
	Name      string `gorm:"primaryKey"`
	Macro     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "macros" }

// SQLStore keeps macros in a SQLite database
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLStore opens (and migrates) the database at path. ":memory:" gives a
// private in-memory database.
func NewSQLStore(path string, logger *zap.Logger) (*SQLStore, error) {
	if path == "" {
		path = "macroweb.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewSQLStoreFromDB(db, logger)
}

// NewSQLStoreFromDB wraps an existing connection
func NewSQLStoreFromDB(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate macros table: %w", err)
	}
	return &SQLStore{db: db, logger: logger}, nil
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, name, serialized string) error {
	if name == "" {
		return ErrEmptyName
	}
	rec := record{Name: name, Macro: serialized}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"macro", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	s.logger.Debug("macro saved", zap.String("name", name))
	return nil
}

// LoadAll implements Store
func (s *SQLStore) LoadAll(ctx context.Context) (map[string]string, error) {
	var recs []record
	if err := s.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load macros: %w", err)
	}
	out := make(map[string]string, len(recs))
	for _, r := range recs {
		out[r.Name] = r.Macro
	}
	return out, nil
}

// Delete implements Store
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := s.db.WithContext(ctx).Delete(&record{Name: name}).Error; err != nil {
		return fmt.Errorf("delete macro %s: %w", name, err)
	}
	s.logger.Debug("macro deleted", zap.String("name", name))
	return nil
}

// Close implements Store
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
