package repository

import (
	"context"

	"github.com/hendarSu/locationtracker/models"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{BaseRepository: NewBaseRepository[models.User, models.UserFilter](db, userScope)}
}

func (r *UserRepositoryImpl) ByID(ctx context.Context, id uint) (*models.User, error) {
	return r.byPrimaryKey(ctx, id)
}

// ByUsername matches the username exactly
func (r *UserRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.User, error) {
	rows, err := r.ByFilter(ctx, models.UserFilter{Username: &username}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func userScope(db *gorm.DB, f models.UserFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.Username != nil {
		db = db.Where("username = ?", *f.Username)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}
