// Package services provides technical concerns like sessions, captcha, caching and rendering
package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/utils"
)

// Session service error constants
var (
	ErrSessionExpired = errors.New("session has expired")
	ErrSessionInvalid = errors.New("invalid session")
)

// SessionService issues the two session artifacts and recovers the identity from them.
//
// Token is an opaque random value kept in an httpOnly cookie. Identity is a signed,
// readable artifact carrying the user id and name, bound to Token through the
// sid claim (SHA-256 of Token). Nothing is stored server side.
type SessionService interface {
	Issue(user *models.User) (*SessionArtifact, error)
	// Recover returns nil, nil when either artifact is missing
	Recover(token, identity string) (*Identity, error)
	TTL() time.Duration
}

// SessionArtifact is what a successful login hands to the client
type SessionArtifact struct {
	Token     string
	Identity  string
	ExpiresAt time.Time
}

// Identity is the authenticated principal recovered from a session
type Identity struct {
	UserID    uint      `json:"id"`
	Username  string    `json:"username"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionServiceImpl implements SessionService with HS256 signed identities
type SessionServiceImpl struct {
	ttl       time.Duration
	secretKey []byte
	issuer    string
	audience  string
	now       func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(ttl time.Duration, issuer, audience, secretKey string) (SessionService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if ttl <= 0 {
		ttl = utils.SessionTTL
	}
	return &SessionServiceImpl{
		ttl:       ttl,
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		now:       utils.UTCNow,
	}, nil
}

func (s *SessionServiceImpl) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh token and the identity bound to it
func (s *SessionServiceImpl) Issue(user *models.User) (*SessionArtifact, error) {
	if user == nil {
		return nil, ErrSessionInvalid
	}

	token, err := generateTokenID()
	if err != nil {
		return nil, err
	}
	jti, err := generateTokenID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"sid":      sessionID(token),
		"jti":      jti,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"iss":      s.issuer,
		"aud":      s.audience,
	}

	identity, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign identity: %w", err)
	}

	return &SessionArtifact{
		Token:     token,
		Identity:  identity,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(),
	}, nil
}

// Recover validates the identity signature and expiry and checks it belongs to token
func (s *SessionServiceImpl) Recover(token, identity string) (*Identity, error) {
	if token == "" || identity == "" {
		return nil, nil
	}

	parsed, err := jwt.Parse(identity, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrSessionInvalid
	}

	sid, _ := claims["sid"].(string)
	if sid == "" || sid != sessionID(token) {
		return nil, ErrSessionInvalid
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, ErrSessionInvalid
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return nil, ErrSessionInvalid
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrSessionInvalid
	}

	return &Identity{
		UserID:    uint(userID),
		Username:  username,
		SessionID: sid,
		ExpiresAt: exp.UTC(),
	}, nil
}

// generateTokenID generates 128 random bits, hex encoded
func generateTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func sessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
