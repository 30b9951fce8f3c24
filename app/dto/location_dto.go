package dto

import "time"

// CaptureLocationRequest is posted by the tracking page after the visitor agrees to share
type CaptureLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90" example:"-6.2088"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180" example:"106.8456"`
	// Phone is the number carried in the link's query string, used only when the link no longer exists
	Phone string `json:"phone,omitempty" validate:"max=255" example:"+628123456789"`
}

// LocationItem is one captured location
type LocationItem struct {
	ID          uint      `json:"id"`
	TrackingID  string    `json:"tracking_id"`
	PhoneNumber string    `json:"phone_number"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Browser     string    `json:"browser,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// LocationHistoryResponse is the capture history of a phone number, newest first
type LocationHistoryResponse struct {
	PhoneNumber string         `json:"phone_number"`
	Items       []LocationItem `json:"items"`
	Total       int            `json:"total"`
}

// RecentLocationsRequest holds the recent feed query parameters
type RecentLocationsRequest struct {
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Query string `query:"q" validate:"max=255"`
}

// RecentLocationsResponse is the newest captures across all phones
type RecentLocationsResponse struct {
	Items []LocationItem `json:"items"`
}

// ExportFile is a downloadable capture history
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
