package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hendarSu/locationtracker/models"
	"gorm.io/gorm"
)

// LocationRecordRepositoryImpl implements LocationRecordRepository
type LocationRecordRepositoryImpl struct {
	*BaseRepository[models.LocationRecord, models.LocationRecordFilter]
}

func NewLocationRecordRepository(db *gorm.DB) LocationRecordRepository {
	return &LocationRecordRepositoryImpl{BaseRepository: NewBaseRepository[models.LocationRecord, models.LocationRecordFilter](db, locationScope)}
}

func (r *LocationRecordRepositoryImpl) ByID(ctx context.Context, id uint) (*models.LocationRecord, error) {
	return r.byPrimaryKey(ctx, id)
}

func (r *LocationRecordRepositoryImpl) DeleteByID(ctx context.Context, id uint) (int64, error) {
	return r.deleteWhere(ctx, &models.LocationRecord{}, "id = ?", id)
}

func (r *LocationRecordRepositoryImpl) DeleteByTrackingID(ctx context.Context, trackingID string) (int64, error) {
	return r.deleteWhere(ctx, &models.LocationRecord{}, "tracking_id = ?", trackingID)
}

func (r *LocationRecordRepositoryImpl) CountDistinctPhones(ctx context.Context) (int64, error) {
	var count int64
	err := r.getDB(ctx).Model(&models.LocationRecord{}).
		Select("COUNT(DISTINCT phone_number)").
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unique phone numbers: %w", err)
	}
	return count, nil
}

// DailyActivity groups captures at or after since by UTC calendar day, newest day first
func (r *LocationRecordRepositoryImpl) DailyActivity(ctx context.Context, since time.Time) ([]models.DailyActivity, error) {
	db := r.getDB(ctx)
	var rows []struct {
		Day   string
		Count int64
	}
	err := db.Model(&models.LocationRecord{}).
		Select(dayExpression(db)+` AS day, COUNT(*) AS count`).
		Where(`"timestamp" >= ?`, since.UTC()).
		Group("day").
		Order("day DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily activity: %w", err)
	}

	activity := make([]models.DailyActivity, 0, len(rows))
	for _, row := range rows {
		activity = append(activity, models.DailyActivity{Date: row.Day, Count: row.Count})
	}
	return activity, nil
}

// dayExpression truncates the capture timestamp to a YYYY-MM-DD string in UTC
func dayExpression(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "sqlite":
		// stored as "YYYY-MM-DD hh:mm:ss+00:00", always written in UTC
		return `substr("timestamp", 1, 10)`
	default:
		return `to_char("timestamp" AT TIME ZONE 'UTC', 'YYYY-MM-DD')`
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s anywhere, case-insensitively, with LIKE wildcards taken literally
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func locationScope(db *gorm.DB, f models.LocationRecordFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.TrackingID != nil {
		db = db.Where("tracking_id = ?", *f.TrackingID)
	}
	if f.PhoneNumber != nil {
		db = db.Where("phone_number = ?", *f.PhoneNumber)
	}
	if f.PhoneNumberLike != nil {
		db = db.Where(`LOWER(phone_number) LIKE ? ESCAPE '\'`, containsPattern(*f.PhoneNumberLike))
	}
	if f.CapturedAfter != nil {
		db = db.Where(`"timestamp" >= ?`, *f.CapturedAfter)
	}
	if f.CapturedBefore != nil {
		db = db.Where(`"timestamp" < ?`, *f.CapturedBefore)
	}
	return db
}
