package businessflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/repository"
	testingutil "github.com/hendarSu/locationtracker/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService(t *testing.T) services.SessionService {
	t.Helper()
	svc, err := services.NewSessionService(24*time.Hour, "test-issuer", "test-audience", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)
	return svc
}

// fixedCaptcha accepts exactly one angle for one challenge
type fixedCaptcha struct {
	id    string
	angle float64
}

func (c fixedCaptcha) GenerateRotate(context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: c.id, MasterImageBase64: "m", ThumbImageBase64: "t"}, nil
}

func (c fixedCaptcha) VerifyRotate(_ context.Context, id string, angle float64) bool {
	return id == c.id && angle == c.angle
}

func TestLoginFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(tdb)
		ctx := testingutil.CreateTestContext()
		sessions := newTestSessionService(t)
		flow := businessflow.NewLoginFlow(repository.NewUserRepository(tdb.DB), sessions, nil)

		user, err := fixtures.CreateTestUser("Administrator")
		require.NoError(t, err)

		t.Run("Success", func(t *testing.T) {
			result, err := flow.Login(ctx, &dto.LoginRequest{Username: "Administrator", Password: testingutil.TestPassword}, businessflow.NewClientMetadata("127.0.0.1", "test"))
			require.NoError(t, err)
			assert.Equal(t, user.ID, result.Response.User.ID)
			assert.Equal(t, "Administrator", result.Response.User.Username)
			assert.Equal(t, result.Session.ExpiresAt, result.Response.ExpiresAt)

			identity, err := sessions.Recover(result.Session.Token, result.Session.Identity)
			require.NoError(t, err)
			assert.Equal(t, user.ID, identity.UserID)
		})

		t.Run("UnknownUserAndWrongPasswordLookAlike", func(t *testing.T) {
			_, errUnknown := flow.Login(ctx, &dto.LoginRequest{Username: "nobody", Password: testingutil.TestPassword}, nil)
			_, errWrong := flow.Login(ctx, &dto.LoginRequest{Username: "Administrator", Password: "wrong-password"}, nil)

			require.Error(t, errUnknown)
			require.Error(t, errWrong)
			assert.True(t, businessflow.IsInvalidCredentials(errUnknown))
			assert.True(t, businessflow.IsInvalidCredentials(errWrong))
			assert.Equal(t, errUnknown.Error(), errWrong.Error())

			var be *businessflow.BusinessError
			require.ErrorAs(t, errWrong, &be)
			assert.Equal(t, "Invalid username or password", be.Message)
		})

		t.Run("UsernameIsCaseSensitive", func(t *testing.T) {
			_, err := flow.VerifyCredentials(ctx, "administrator", testingutil.TestPassword)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("MissingFields", func(t *testing.T) {
			for _, req := range []*dto.LoginRequest{nil, {Username: "", Password: "x"}, {Username: "Administrator", Password: ""}} {
				_, err := flow.Login(ctx, req, nil)
				require.Error(t, err)
				assert.True(t, businessflow.IsCredentialsRequired(err))
				var be *businessflow.BusinessError
				require.ErrorAs(t, err, &be)
				assert.Equal(t, "Username and password are required", be.Message)
			}
		})

		t.Run("CaptchaDisabled", func(t *testing.T) {
			assert.False(t, flow.CaptchaEnabled())
			_, err := flow.InitCaptcha(ctx)
			assert.True(t, businessflow.IsCaptchaDisabled(err))
		})

		t.Run("CaptchaGate", func(t *testing.T) {
			gated := businessflow.NewLoginFlow(repository.NewUserRepository(tdb.DB), sessions, fixedCaptcha{id: "c1", angle: 90})
			assert.True(t, gated.CaptchaEnabled())

			ch, err := gated.InitCaptcha(ctx)
			require.NoError(t, err)
			assert.Equal(t, "c1", ch.ChallengeID)

			_, err = gated.Login(ctx, &dto.LoginRequest{Username: "Administrator", Password: testingutil.TestPassword, ChallengeID: "c1", UserAngle: 10}, nil)
			assert.True(t, businessflow.IsInvalidCaptcha(err))

			_, err = gated.Login(ctx, &dto.LoginRequest{Username: "Administrator", Password: testingutil.TestPassword, ChallengeID: "c1", UserAngle: 90}, nil)
			assert.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}
