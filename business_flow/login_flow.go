package businessflow

import (
	"context"
	"strings"
	"sync"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow verifies administrator credentials and issues sessions
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*LoginResult, error)
	VerifyCredentials(ctx context.Context, username, password string) (*models.User, error)
	InitCaptcha(ctx context.Context) (*dto.CaptchaChallengeResponse, error)
	CaptchaEnabled() bool
}

// LoginResult carries the response body and the artifacts the handler puts in cookies
type LoginResult struct {
	Response *dto.LoginResponse
	Session  *services.SessionArtifact
}

type LoginFlowImpl struct {
	userRepo       repository.UserRepository
	sessionService services.SessionService
	captchaSvc     services.CaptchaService
}

// NewLoginFlow creates the login flow; a nil captcha service disables the captcha gate
func NewLoginFlow(userRepo repository.UserRepository, sessionService services.SessionService, captchaSvc services.CaptchaService) LoginFlow {
	return &LoginFlowImpl{
		userRepo:       userRepo,
		sessionService: sessionService,
		captchaSvc:     captchaSvc,
	}
}

func (lf *LoginFlowImpl) CaptchaEnabled() bool {
	return lf.captchaSvc != nil
}

func (lf *LoginFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaChallengeResponse, error) {
	if lf.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_DISABLED", "Captcha is not enabled", ErrCaptchaDisabled)
	}
	ch, err := lf.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.CaptchaChallengeResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

// VerifyCredentials matches the username exactly. Unknown users and wrong passwords
// produce the same error.
func (lf *LoginFlowImpl) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, NewBusinessError("CREDENTIALS_REQUIRED", "Username and password are required", ErrCredentialsRequired)
	}

	user, err := lf.userRepo.ByUsername(ctx, username)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		// same cost as a wrong password
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid username or password", ErrInvalidCredentials)
	}
	return user, nil
}

func (lf *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*LoginResult, error) {
	if req == nil {
		return nil, NewBusinessError("CREDENTIALS_REQUIRED", "Username and password are required", ErrCredentialsRequired)
	}

	if lf.captchaSvc != nil && !lf.captchaSvc.VerifyRotate(ctx, req.ChallengeID, req.UserAngle) {
		loginAttemptsTotal.WithLabelValues("captcha_failed").Inc()
		return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrInvalidCaptcha)
	}

	user, err := lf.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		loginAttemptsTotal.WithLabelValues("rejected").Inc()
		ev := logger.Ctx(ctx).Info().Str("username", req.Username)
		if metadata != nil {
			ev = ev.Str("ip", metadata.IPAddress)
		}
		ev.Msg("login rejected")
		return nil, err
	}

	artifact, err := lf.sessionService.Issue(user)
	if err != nil {
		return nil, NewBusinessError("SESSION_ISSUE_FAILED", "Failed to create session", err)
	}
	loginAttemptsTotal.WithLabelValues("success").Inc()

	return &LoginResult{
		Response: &dto.LoginResponse{
			User:      ToUserInfo(user.ID, user.Username),
			ExpiresAt: artifact.ExpiresAt,
		},
		Session: artifact,
	}, nil
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.DefaultCost)
	return hash
})
