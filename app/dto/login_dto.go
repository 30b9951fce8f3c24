package dto

import (
	"time"
)

// LoginRequest represents the request payload for administrator login
type LoginRequest struct {
	Username    string  `json:"username" validate:"max=255" example:"Administrator"`
	Password    string  `json:"password" validate:"max=255" example:"SecurePass123!"`
	ChallengeID string  `json:"challenge_id,omitempty" validate:"omitempty,uuid4" example:"3f1d2c9e-6a2b-4b8f-9c1e-2f3a4b5c6d7e"`
	UserAngle   float64 `json:"user_angle,omitempty" example:"127.5"`
}

// LoginResponse represents the successful login payload
type LoginResponse struct {
	User      UserInfo  `json:"user"`
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-15T16:30:00Z"`
}

// UserInfo represents the authenticated user
type UserInfo struct {
	ID       uint   `json:"id" example:"1"`
	Username string `json:"username" example:"Administrator"`
}

// CaptchaChallengeResponse carries a rotate captcha for the login form
type CaptchaChallengeResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}
