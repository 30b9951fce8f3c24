package models

import "time"

// TrackingLinkBase is the original shape of tracking_links, before the presentation
// columns were introduced. It is used to create the base table and as the fallback
// insert when the store has not been migrated yet.
type TrackingLinkBase struct {
	ID          string    `gorm:"primaryKey;size:255" json:"id"`
	PhoneNumber string    `gorm:"size:255;not null;index:idx_tracking_links_phone_number" json:"phone_number"`
	CreatedBy   string    `gorm:"size:255;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"not null;index:idx_tracking_links_created_at" json:"created_at"`
}

func (TrackingLinkBase) TableName() string { return "tracking_links" }

// TrackingLink is a shareable link bound to one phone number.
// ID is either a normalized custom slug or a random hex token.
type TrackingLink struct {
	ID                string    `gorm:"primaryKey;size:255" json:"id"`
	PhoneNumber       string    `gorm:"size:255;not null;index:idx_tracking_links_phone_number" json:"phone_number"`
	CreatedBy         string    `gorm:"size:255;not null" json:"created_by"`
	CustomTitle       *string   `gorm:"type:text" json:"custom_title,omitempty"`
	CustomDescription *string   `gorm:"type:text" json:"custom_description,omitempty"`
	CustomContent     *string   `gorm:"type:text" json:"custom_content,omitempty"`
	CreatedAt         time.Time `gorm:"not null;index:idx_tracking_links_created_at" json:"created_at"`
}

func (TrackingLink) TableName() string { return "tracking_links" }

// Base strips the presentation fields
func (l TrackingLink) Base() TrackingLinkBase {
	return TrackingLinkBase{
		ID:          l.ID,
		PhoneNumber: l.PhoneNumber,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   l.CreatedAt,
	}
}

// ExtendedColumns lists the optional presentation columns added by migration
var ExtendedColumns = []string{"custom_title", "custom_description", "custom_content"}

// TrackingLinkSummary is a tracking link with its capture activity
type TrackingLinkSummary struct {
	TrackingLink
	LocationCount int64      `json:"location_count"`
	LastUsed      *time.Time `json:"last_used"`
}

// TrackingLinkFilter provides filter fields for repository queries
type TrackingLinkFilter struct {
	ID            *string
	PhoneNumber   *string
	CreatedBy     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
