package utils

import (
	"time"
)

// Session constants
const (
	// SessionTTL is the validity window of an issued session (24 hours)
	SessionTTL = 24 * time.Hour

	// SessionCookieName holds the opaque session token (httpOnly)
	SessionCookieName = "auth-session"

	// IdentityCookieName holds the signed identity artifact (readable by the page)
	IdentityCookieName = "auth-user"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400

	// AdminSeedBcryptCost is the bcrypt cost used for the bootstrap administrator
	AdminSeedBcryptCost = 10
)

// Tracking link constants
const (
	// DefaultPublicBaseURL is used to build absolute tracking links when none is configured
	DefaultPublicBaseURL = "http://localhost:3000"

	// RandomLinkIDBytes is the number of random bytes behind a generated link id (16 hex chars)
	RandomLinkIDBytes = 8

	// SystemUsername is recorded as creator when no authenticated user is known
	SystemUsername = "system"

	// RecentLocationsDefaultLimit is the default page size of the recent locations feed
	RecentLocationsDefaultLimit = 10

	// RecentLocationsMaxLimit caps the recent locations feed
	RecentLocationsMaxLimit = 100

	// RecentActivityWindow is the trailing window of the per-day activity report
	RecentActivityWindow = 7 * 24 * time.Hour
)

// Cache keys
const (
	LinksListCacheKey     = "links:all"
	ProfileCacheKeyPrefix = "profile:"
)

// ProfileCacheKey returns the cache key of a phone number's location history
func ProfileCacheKey(phoneNumber string) string {
	return ProfileCacheKeyPrefix + phoneNumber
}
