// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// FilterScope narrows a query to the rows matching a filter
type FilterScope[F any] func(db *gorm.DB, filter F) *gorm.DB

// BaseRepository implements the filter based reads and the insert shared by every table.
// Calls join the transaction stored in the context by WithTransaction, if any.
type BaseRepository[T any, F any] struct {
	DB    *gorm.DB
	scope FilterScope[F]
}

// NewBaseRepository creates a base repository that filters with scope
func NewBaseRepository[T any, F any](db *gorm.DB, scope FilterScope[F]) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		DB:    db,
		scope: scope,
	}
}

// getDB returns the transaction from ctx or a fresh session bound to ctx
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB.WithContext(ctx)
}

func (r *BaseRepository[T, F]) filtered(ctx context.Context, filter F) *gorm.DB {
	return r.scope(r.getDB(ctx).Model(new(T)), filter)
}

// byPrimaryKey retrieves an entity by its primary key, nil when absent
func (r *BaseRepository[T, F]) byPrimaryKey(ctx context.Context, id any) (*T, error) {
	var entity T
	err := r.getDB(ctx).Where("id = ?", id).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %T by id %v: %w", entity, id, err)
	}
	return &entity, nil
}

// ByFilter lists matching rows. A zero limit or offset is not applied.
func (r *BaseRepository[T, F]) ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error) {
	query := r.filtered(ctx, filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*T
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BaseRepository[T, F]) Count(ctx context.Context, filter F) (int64, error) {
	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BaseRepository[T, F]) Exists(ctx context.Context, filter F) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	return r.create(ctx, entity)
}

// create inserts value into the table of its own model, which need not be T
func (r *BaseRepository[T, F]) create(ctx context.Context, value any) error {
	if err := r.getDB(ctx).Create(value).Error; err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// deleteWhere removes the rows of model matching the condition and reports how many went
func (r *BaseRepository[T, F]) deleteWhere(ctx context.Context, model any, query string, args ...any) (int64, error) {
	res := r.getDB(ctx).Where(query, args...).Delete(model)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete from %T: %w", model, res.Error)
	}
	return res.RowsAffected, nil
}

// WithTransaction runs fn inside a transaction carried by the context. A call made
// while a transaction is already open joins it.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	if err := fn(context.WithValue(ctx, TxContextKey, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
