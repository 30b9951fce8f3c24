package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hendarSu/locationtracker/models"
	"gorm.io/gorm"
)

// TrackingLinkRepositoryImpl implements TrackingLinkRepository
type TrackingLinkRepositoryImpl struct {
	*BaseRepository[models.TrackingLink, models.TrackingLinkFilter]
}

func NewTrackingLinkRepository(db *gorm.DB) TrackingLinkRepository {
	return &TrackingLinkRepositoryImpl{BaseRepository: NewBaseRepository[models.TrackingLink, models.TrackingLinkFilter](db, trackingLinkScope)}
}

// ByID reads every column present in the table, so it works before and after migration
func (r *TrackingLinkRepositoryImpl) ByID(ctx context.Context, id string) (*models.TrackingLink, error) {
	return r.byPrimaryKey(ctx, id)
}

// SaveBase inserts a link without the presentation columns
func (r *TrackingLinkRepositoryImpl) SaveBase(ctx context.Context, link *models.TrackingLinkBase) error {
	return r.create(ctx, link)
}

func (r *TrackingLinkRepositoryImpl) DeleteByID(ctx context.Context, id string) (int64, error) {
	return r.deleteWhere(ctx, &models.TrackingLinkBase{}, "id = ?", id)
}

const listWithActivityQuery = `
SELECT tl.id, tl.phone_number, tl.created_by, tl.created_at,
       %s,
       COUNT(ld.id) AS location_count,
       MAX(ld."timestamp") AS last_used
FROM tracking_links AS tl
LEFT JOIN location_data AS ld ON ld.tracking_id = tl.id
GROUP BY tl.id, tl.phone_number, tl.created_by, tl.created_at%s
ORDER BY tl.created_at DESC`

// ListWithActivity returns every link with its capture count and last capture time.
// Without the extended columns the presentation fields are selected as NULL.
func (r *TrackingLinkRepositoryImpl) ListWithActivity(ctx context.Context, extended bool) ([]*models.TrackingLinkSummary, error) {
	selectCols := make([]string, 0, len(models.ExtendedColumns))
	groupCols := ""
	for _, col := range models.ExtendedColumns {
		if extended {
			selectCols = append(selectCols, "tl."+col)
			groupCols += ", tl." + col
		} else {
			selectCols = append(selectCols, "NULL AS "+col)
		}
	}
	query := fmt.Sprintf(listWithActivityQuery, strings.Join(selectCols, ", "), groupCols)

	rows, err := r.getDB(ctx).Raw(query).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking links: %w", err)
	}
	defer rows.Close()

	result := make([]*models.TrackingLinkSummary, 0)
	for rows.Next() {
		var (
			s                           models.TrackingLinkSummary
			title, description, content sql.NullString
			createdAt, lastUsed         scanTime
		)
		if err := rows.Scan(
			&s.ID, &s.PhoneNumber, &s.CreatedBy, &createdAt,
			&title, &description, &content,
			&s.LocationCount, &lastUsed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tracking link: %w", err)
		}
		s.CreatedAt = createdAt.Time
		s.CustomTitle = nullStringPtr(title)
		s.CustomDescription = nullStringPtr(description)
		s.CustomContent = nullStringPtr(content)
		s.LastUsed = lastUsed.Ptr()
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracking links: %w", err)
	}
	return result, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func trackingLinkScope(db *gorm.DB, f models.TrackingLinkFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.PhoneNumber != nil {
		db = db.Where("phone_number = ?", *f.PhoneNumber)
	}
	if f.CreatedBy != nil {
		db = db.Where("created_by = ?", *f.CreatedBy)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}
