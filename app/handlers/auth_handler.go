package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/utils"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	InitCaptcha(c fiber.Ctx) error
	Me(c fiber.Ctx) error
}

// CookieConfig controls the attributes of the two session cookies
type CookieConfig struct {
	Secure   bool
	SameSite string
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	loginFlow businessflow.LoginFlow
	cookies   CookieConfig
	validator *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.LoginFlow, cookies CookieConfig) *AuthHandler {
	if cookies.SameSite == "" {
		cookies.SameSite = fiber.CookieSameSiteLaxMode
	}
	return &AuthHandler{
		loginFlow: loginFlow,
		cookies:   cookies,
		validator: validator.New(),
	}
}

// Login verifies the administrator credentials and sets the session cookies
// @Summary Administrator login
// @Description Verify username and password and issue the auth-session and auth-user cookies
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Missing credentials or invalid captcha"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get(fiber.HeaderUserAgent))
	metadata.SetRequestID(requestid.FromContext(c))

	ctx, cancel := createRequestContext(c, "/api/auth/login")
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req, metadata)
	if err != nil {
		switch {
		case businessflow.IsCredentialsRequired(err):
			return ErrorResponse(c, fiber.StatusBadRequest, "Username and password are required", "CREDENTIALS_REQUIRED", nil)
		case businessflow.IsInvalidCaptcha(err):
			return ErrorResponse(c, fiber.StatusBadRequest, "Captcha validation failed", "CAPTCHA_INVALID", nil)
		case businessflow.IsInvalidCredentials(err):
			return ErrorResponse(c, fiber.StatusUnauthorized, "Invalid username or password", "INVALID_CREDENTIALS", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("login failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	h.setSessionCookies(c, result.Session)
	return SuccessResponse(c, fiber.StatusOK, "Login successful", result.Response)
}

// Logout discards both session cookies. The artifacts stay valid until they expire.
// @Summary Logout
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse "Logged out"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	h.clearSessionCookies(c)
	return SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

// InitCaptcha issues a rotate captcha challenge for the login form
// @Summary Login captcha
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaChallengeResponse} "Captcha generated"
// @Failure 404 {object} dto.APIResponse "Captcha disabled"
// @Router /api/auth/captcha [get]
func (h *AuthHandler) InitCaptcha(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/auth/captcha")
	defer cancel()

	challenge, err := h.loginFlow.InitCaptcha(ctx)
	if err != nil {
		if businessflow.IsCaptchaDisabled(err) {
			return ErrorResponse(c, fiber.StatusNotFound, "Captcha is not enabled", "CAPTCHA_DISABLED", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("captcha generation failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to initialize captcha", "CAPTCHA_INIT_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Captcha generated", challenge)
}

// Me returns the identity recovered from the session cookies
// @Summary Current administrator
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UserInfo} "Authenticated"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	identity := currentIdentity(c)
	if identity == nil {
		return ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Authenticated", businessflow.ToUserInfo(identity.UserID, identity.Username))
}

func (h *AuthHandler) setSessionCookies(c fiber.Ctx, session *services.SessionArtifact) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.Cookie(&fiber.Cookie{
		Name:     utils.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
	c.Cookie(&fiber.Cookie{
		Name:     utils.IdentityCookieName,
		Value:    session.Identity,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   maxAge,
		HTTPOnly: false,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func (h *AuthHandler) clearSessionCookies(c fiber.Ctx) {
	expired := time.Unix(0, 0).UTC()
	for _, name := range []string{utils.SessionCookieName, utils.IdentityCookieName} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  expired,
			MaxAge:   -1,
			HTTPOnly: name == utils.SessionCookieName,
			Secure:   h.cookies.Secure,
			SameSite: h.cookies.SameSite,
		})
	}
}

// businessMessage returns the user-facing message of a business error, or fallback
func businessMessage(err error, fallback string) string {
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
