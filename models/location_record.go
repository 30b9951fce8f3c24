package models

import "time"

// UnknownPhoneNumber is stored when a capture cannot be tied to a phone number
const UnknownPhoneNumber = "unknown"

// LocationRecord is one geolocation reading captured through a tracking link.
// TrackingID is not a formal foreign key; deletion is handled by the application.
// PhoneNumber is copied from the link at capture time.
type LocationRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackingID  string    `gorm:"size:255;not null;index:idx_location_data_tracking_id" json:"tracking_id"`
	PhoneNumber string    `gorm:"size:255;not null;index:idx_location_data_phone_number" json:"phone_number"`
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	Browser     *string   `gorm:"type:text" json:"browser,omitempty"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index:idx_location_data_timestamp" json:"timestamp"`
}

func (LocationRecord) TableName() string { return "location_data" }

// LocationRecordFilter provides filter fields for repository queries
type LocationRecordFilter struct {
	ID              *uint
	TrackingID      *string
	PhoneNumber     *string
	PhoneNumberLike *string
	CapturedAfter   *time.Time
	CapturedBefore  *time.Time
}

// DailyActivity is the number of captures on one UTC calendar day
type DailyActivity struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// TrackingStats summarizes stored links and captures
type TrackingStats struct {
	TotalLinks     int64           `json:"totalLinks"`
	TotalLocations int64           `json:"totalLocations"`
	UniquePhones   int64           `json:"uniquePhones"`
	RecentActivity []DailyActivity `json:"recentActivity"`
}
