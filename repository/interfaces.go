// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/hendarSu/locationtracker/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// SchemaStore owns table definitions and their additive evolution
type SchemaStore interface {
	EnsureBaseSchema(ctx context.Context) error
	EnsureExtendedColumns(ctx context.Context) (added []string, err error)
	HasExtendedColumns(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
}

// UserRepository defines operations for administrative users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
}

// TrackingLinkRepository defines operations for tracking links
type TrackingLinkRepository interface {
	Repository[models.TrackingLink, models.TrackingLinkFilter]
	ByID(ctx context.Context, id string) (*models.TrackingLink, error)
	// SaveBase inserts only the base columns
	SaveBase(ctx context.Context, link *models.TrackingLinkBase) error
	ListWithActivity(ctx context.Context, extended bool) ([]*models.TrackingLinkSummary, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
}

// LocationRecordRepository defines operations for captured locations
type LocationRecordRepository interface {
	Repository[models.LocationRecord, models.LocationRecordFilter]
	ByID(ctx context.Context, id uint) (*models.LocationRecord, error)
	DeleteByID(ctx context.Context, id uint) (int64, error)
	DeleteByTrackingID(ctx context.Context, trackingID string) (int64, error)
	CountDistinctPhones(ctx context.Context) (int64, error)
	DailyActivity(ctx context.Context, since time.Time) ([]models.DailyActivity, error)
}
