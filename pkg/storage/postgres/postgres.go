// Package postgres stores rows in a single PostgreSQL table through GORM. A
// unique index on (collection, identifier) makes every insert and rename an
// insert-if-absent.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/internal/slug"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

type record struct {
	Collection string  `gorm:"primaryKey;size:64;uniqueIndex:idx_records_collection_identifier,priority:1"`
	ID         string  `gorm:"primaryKey;size:128"`
	Identifier string  `gorm:"not null;uniqueIndex:idx_records_collection_identifier,priority:2"`
	Columns    Columns `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (record) TableName() string { return "records" }

func (r *record) toRow() storage.Row {
	return &storage.StaticRow{
		RowType:       r.Collection,
		RowID:         r.ID,
		RowIdentifier: r.Identifier,
		RowColumns:    storage.CopyColumns(r.Columns),
	}
}

type Store struct {
	db *gorm.DB
}

var _ storage.RowStorer = &Store{}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger{level: logger.Warn},
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return New(ctx, db)
}

// New migrates the records table on db.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrating records: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FindRows(ctx context.Context, rowType, field, value string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("FindRows %q %q %q", rowType, field, value))
	query := s.db.WithContext(ctx).Where("collection = ?", rowType)
	if field == storage.FieldIdentifier {
		query = query.Where("identifier = ?", value)
	} else {
		query = query.Where("columns ->> ? = ?", field, value)
	}
	return s.find(query)
}

func (s *Store) GetRowByID(ctx context.Context, rowType, rowID string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRowByID %q", rowID))
	var r record
	err := s.db.WithContext(ctx).Where("collection = ? AND id = ?", rowType, rowID).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	if err != nil {
		return nil, err
	}
	return r.toRow(), nil
}

func (s *Store) GetRow(ctx context.Context, rowType, identifier string) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("GetRow %q %q", rowType, identifier))
	var r record
	err := s.db.WithContext(ctx).Where("collection = ? AND identifier = ?", rowType, identifier).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrNotFoundRow, rowType, identifier)
	}
	if err != nil {
		return nil, err
	}
	return r.toRow(), nil
}

func (s *Store) ListRows(ctx context.Context, rowType, identifierFilter string) ([]storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("ListRows %q %q", rowType, identifierFilter))
	query := s.db.WithContext(ctx).Where("collection = ?", rowType)
	if identifierFilter != "" {
		query = query.Where("strpos(identifier, ?) > 0", identifierFilter)
	}
	return s.find(query.Order("identifier"))
}

func (s *Store) find(query *gorm.DB) ([]storage.Row, error) {
	var records []record
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	rows := make([]storage.Row, len(records))
	for i := range records {
		rows[i] = records[i].toRow()
	}
	return rows, nil
}

func (s *Store) CreateRow(ctx context.Context, rowType, identifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("CreateRow %q %q", rowType, identifier))
	if identifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	r := &record{
		Collection: rowType,
		ID:         slug.NewID(rowType),
		Identifier: identifier,
		Columns:    Columns(storage.CopyColumns(columns)),
	}
	err := s.db.WithContext(ctx).Create(r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, identifier)
	}
	if err != nil {
		return nil, err
	}
	return r.toRow(), nil
}

func (s *Store) UpdateRow(ctx context.Context, rowType, rowID, newIdentifier string, columns map[string]interface{}) (storage.Row, error) {
	tflog.Debug(ctx, fmt.Sprintf("UpdateRow %q %q %q", rowType, rowID, newIdentifier))
	if newIdentifier == "" {
		return nil, storage.ErrMissingIdentifier
	}
	newColumns := Columns(storage.CopyColumns(columns))
	result := s.db.WithContext(ctx).
		Model(&record{}).
		Where("collection = ? AND id = ?", rowType, rowID).
		Updates(map[string]interface{}{
			"identifier": newIdentifier,
			"columns":    newColumns,
			"updated_at": time.Now().UTC(),
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w: type %q and identifier %q", storage.ErrCollisionIdentifier, rowType, newIdentifier)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	return &storage.StaticRow{
		RowType:       rowType,
		RowID:         rowID,
		RowIdentifier: newIdentifier,
		RowColumns:    storage.CopyColumns(newColumns),
	}, nil
}

func (s *Store) DeleteRow(ctx context.Context, rowType, rowID string) error {
	tflog.Debug(ctx, fmt.Sprintf("DeleteRow %q %q", rowType, rowID))
	result := s.db.WithContext(ctx).Where("collection = ? AND id = ?", rowType, rowID).Delete(&record{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", storage.ErrNotFoundRow, rowID)
	}
	return nil
}
