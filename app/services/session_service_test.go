package services

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hendarSu/locationtracker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-secret-key-for-jwt-signing-32-chars"

func createTestSessionService(t *testing.T) *SessionServiceImpl {
	t.Helper()
	svc, err := NewSessionService(24*time.Hour, "test-issuer", "test-audience", testSessionSecret)
	require.NoError(t, err)
	return svc.(*SessionServiceImpl)
}

func TestNewSessionService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		secretKey   string
		expectError bool
		expectTTL   time.Duration
	}{
		{"valid configuration", time.Hour, testSessionSecret, false, time.Hour},
		{"missing secret key", time.Hour, "", true, 0},
		{"zero ttl falls back to default", 0, testSessionSecret, false, 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewSessionService(tt.ttl, "iss", "aud", tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectTTL, svc.TTL())
		})
	}
}

func TestSessionIssueAndRecover(t *testing.T) {
	svc := createTestSessionService(t)
	user := &models.User{ID: 7, Username: "Administrator"}

	artifact, err := svc.Issue(user)
	require.NoError(t, err)
	assert.Len(t, artifact.Token, 32)
	assert.NotContains(t, artifact.Token, ".")
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), artifact.ExpiresAt, 5*time.Second)

	identity, err := svc.Recover(artifact.Token, artifact.Identity)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, uint(7), identity.UserID)
	assert.Equal(t, "Administrator", identity.Username)
	assert.Equal(t, artifact.ExpiresAt, identity.ExpiresAt)

	t.Run("tokens are unique", func(t *testing.T) {
		other, err := svc.Issue(user)
		require.NoError(t, err)
		assert.NotEqual(t, artifact.Token, other.Token)
		assert.NotEqual(t, artifact.Identity, other.Identity)
	})
}

func TestSessionRecoverRejects(t *testing.T) {
	svc := createTestSessionService(t)
	artifact, err := svc.Issue(&models.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	t.Run("missing artifacts", func(t *testing.T) {
		identity, err := svc.Recover("", artifact.Identity)
		assert.NoError(t, err)
		assert.Nil(t, identity)

		identity, err = svc.Recover(artifact.Token, "")
		assert.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("identity from another session", func(t *testing.T) {
		other, err := svc.Issue(&models.User{ID: 1, Username: "alice"})
		require.NoError(t, err)
		_, err = svc.Recover(artifact.Token, other.Identity)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(artifact.Identity, ".")
		require.Len(t, parts, 3)
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 99, "username": "mallory", "sid": "x",
		}).SignedString([]byte("another-secret"))
		require.NoError(t, err)
		forgedParts := strings.Split(forged, ".")
		tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

		_, err = svc.Recover(artifact.Token, tampered)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		otherSvc, err := NewSessionService(time.Hour, "test-issuer", "test-audience", "some-other-secret-key-of-32-chars!")
		require.NoError(t, err)
		_, err = otherSvc.Recover(artifact.Token, artifact.Identity)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		otherSvc, err := NewSessionService(time.Hour, "test-issuer", "other-audience", testSessionSecret)
		require.NoError(t, err)
		_, err = otherSvc.Recover(artifact.Token, artifact.Identity)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Recover(artifact.Token, "not-a-jwt")
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		expiring := createTestSessionService(t)
		expiring.now = func() time.Time { return time.Now().UTC().Add(-25 * time.Hour) }
		old, err := expiring.Issue(&models.User{ID: 1, Username: "alice"})
		require.NoError(t, err)

		_, err = svc.Recover(old.Token, old.Identity)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})
}

func TestSessionIssueNilUser(t *testing.T) {
	svc := createTestSessionService(t)
	_, err := svc.Issue(nil)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
