package dto

import (
	"html/template"
	"time"
)

// CreateTrackingLinkRequest represents the request to create a tracking link
type CreateTrackingLinkRequest struct {
	PhoneNumber       string  `json:"phone_number" validate:"required,max=255" example:"+628123456789"`
	CustomSlug        *string `json:"custom_slug,omitempty" validate:"omitempty,max=255" example:"Promo 1"`
	CustomTitle       *string `json:"custom_title,omitempty" validate:"omitempty,max=500" example:"Summer promo"`
	CustomDescription *string `json:"custom_description,omitempty" validate:"omitempty,max=2000" example:"Claim your voucher"`
	CustomContent     *string `json:"custom_content,omitempty" validate:"omitempty,max=20000" example:"# Welcome"`
}

// CreateTrackingLinkResponse is the id and shareable URL of a new link
type CreateTrackingLinkResponse struct {
	ID  string `json:"id" example:"promo-1"`
	URL string `json:"url" example:"http://localhost:3000/track/promo-1?phone=%2B628123456789"`
}

// TrackingLinkItem is one row of the dashboard link list
type TrackingLinkItem struct {
	ID                string     `json:"id"`
	PhoneNumber       string     `json:"phone_number"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	CustomTitle       *string    `json:"custom_title,omitempty"`
	CustomDescription *string    `json:"custom_description,omitempty"`
	CustomContent     *string    `json:"custom_content,omitempty"`
	LocationCount     int64      `json:"location_count"`
	LastUsed          *time.Time `json:"last_used"`
	URL               string     `json:"url"`
}

// ListTrackingLinksResponse wraps the dashboard link list
type ListTrackingLinksResponse struct {
	Items []TrackingLinkItem `json:"items"`
	Total int                `json:"total"`
}

// TrackingLinkDetail is a single link as seen by an administrator
type TrackingLinkDetail struct {
	ID                string    `json:"id"`
	PhoneNumber       string    `json:"phone_number"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	CustomTitle       *string   `json:"custom_title,omitempty"`
	CustomDescription *string   `json:"custom_description,omitempty"`
	CustomContent     *string   `json:"custom_content,omitempty"`
	URL               string    `json:"url"`
}

// PublicTrackingLink is what an unauthenticated visitor may learn about a link.
// The phone number is not exposed.
type PublicTrackingLink struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	ContentHTML template.HTML `json:"content_html,omitempty"`
}

// DeleteResponse reports the removed entity
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
