package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hendarSu/locationtracker/models"
	"gorm.io/gorm"
)

// SchemaStoreImpl creates and evolves the tracking tables through gorm's migrator.
// Every step is a single additive DDL statement guarded by a metadata probe.
type SchemaStoreImpl struct {
	db       *gorm.DB
	extended atomic.Bool
}

func NewSchemaStore(db *gorm.DB) *SchemaStoreImpl {
	return &SchemaStoreImpl{db: db}
}

// baseTables are created in this order when absent
func baseTables() []any {
	return []any{
		&models.User{},
		&models.TrackingLinkBase{},
		&models.LocationRecord{},
	}
}

// EnsureBaseSchema creates missing tables. Tables that already exist are left untouched.
func (s *SchemaStoreImpl) EnsureBaseSchema(ctx context.Context) error {
	migrator := s.db.WithContext(ctx).Migrator()
	for _, table := range baseTables() {
		if migrator.HasTable(table) {
			continue
		}
		if err := migrator.CreateTable(table); err != nil {
			// another process may have won the race
			if migrator.HasTable(table) {
				continue
			}
			return fmt.Errorf("failed to create table for %T: %w", table, err)
		}
	}
	return nil
}

// EnsureExtendedColumns adds the presentation columns that are missing and returns their names
func (s *SchemaStoreImpl) EnsureExtendedColumns(ctx context.Context) ([]string, error) {
	migrator := s.db.WithContext(ctx).Migrator()
	link := &models.TrackingLink{}

	added := make([]string, 0, len(models.ExtendedColumns))
	for _, column := range models.ExtendedColumns {
		if migrator.HasColumn(link, column) {
			continue
		}
		if err := migrator.AddColumn(link, column); err != nil {
			if migrator.HasColumn(link, column) {
				continue
			}
			return added, fmt.Errorf("failed to add column %s: %w", column, err)
		}
		added = append(added, column)
	}
	s.extended.Store(true)
	return added, nil
}

// HasExtendedColumns reports whether every presentation column exists.
// A positive answer is kept for the life of the process; columns are never dropped.
func (s *SchemaStoreImpl) HasExtendedColumns(ctx context.Context) (bool, error) {
	if s.extended.Load() {
		return true, nil
	}
	migrator := s.db.WithContext(ctx).Migrator()
	link := &models.TrackingLink{}
	for _, column := range models.ExtendedColumns {
		if !migrator.HasColumn(link, column) {
			return false, nil
		}
	}
	s.extended.Store(true)
	return true, nil
}

func (s *SchemaStoreImpl) Ping(ctx context.Context) error {
	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
