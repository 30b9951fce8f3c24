// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"net/url"
	"strings"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/utils"
)

// ClientMetadata holds client information attached to a request
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// BuildTrackingURL returns the shareable URL of a link. The phone number is kept in the
// query string so links shared before a link is deleted still resolve a phone on capture.
func BuildTrackingURL(baseURL, id, phoneNumber string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = utils.DefaultPublicBaseURL
	}
	return base + "/track/" + url.PathEscape(id) + "?phone=" + url.QueryEscape(phoneNumber)
}

// ToUserInfo converts a user or identity to the response shape
func ToUserInfo(id uint, username string) dto.UserInfo {
	return dto.UserInfo{ID: id, Username: username}
}

// ToLocationItem converts a captured record to its response shape
func ToLocationItem(r *models.LocationRecord) dto.LocationItem {
	return dto.LocationItem{
		ID:          r.ID,
		TrackingID:  r.TrackingID,
		PhoneNumber: r.PhoneNumber,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Browser:     utils.Deref(r.Browser),
		Timestamp:   r.Timestamp.UTC(),
	}
}

// ToTrackingLinkItem converts a link summary to a dashboard row
func ToTrackingLinkItem(s *models.TrackingLinkSummary, baseURL string) dto.TrackingLinkItem {
	return dto.TrackingLinkItem{
		ID:                s.ID,
		PhoneNumber:       s.PhoneNumber,
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt.UTC(),
		CustomTitle:       s.CustomTitle,
		CustomDescription: s.CustomDescription,
		CustomContent:     s.CustomContent,
		LocationCount:     s.LocationCount,
		LastUsed:          s.LastUsed,
		URL:               BuildTrackingURL(baseURL, s.ID, s.PhoneNumber),
	}
}

// invalidateViews drops cached views, logging failures
func invalidateViews(ctx context.Context, cache services.ViewCache, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	if err := cache.Invalidate(ctx, keys...); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("view cache invalidation failed")
	}
}

// cachedView reads a view from cache, treating errors as a miss
func cachedView(ctx context.Context, cache services.ViewCache, key string, dest any) bool {
	if cache == nil {
		return false
	}
	found, err := cache.Get(ctx, key, dest)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("view cache read failed")
		return false
	}
	return found
}

func storeView(ctx context.Context, cache services.ViewCache, key string, value any) {
	if cache == nil {
		return
	}
	if err := cache.Set(ctx, key, value); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("view cache write failed")
	}
}
