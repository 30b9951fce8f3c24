// Package businessflow contains the core business logic and use cases of the location tracker
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Credential errors
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidCaptcha      = errors.New("invalid captcha")
	ErrCaptchaDisabled     = errors.New("captcha is disabled")

	// Tracking link errors
	ErrPhoneNumberRequired = errors.New("phone number is required")
	ErrPhoneNumberTooLong  = errors.New("phone number is too long")
	ErrSlugInUse           = errors.New("slug is already in use")
	ErrLinkNotFound        = errors.New("tracking link not found")
	ErrLinkIDRequired      = errors.New("tracking link id is required")

	// Capture errors
	ErrInvalidCoordinates = errors.New("coordinates are out of range")
	ErrCaptureFailed      = errors.New("failed to save location data")
	ErrLocationNotFound   = errors.New("location record not found")

	// Export errors
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCredentialsRequired(err error) bool {
	return errors.Is(err, ErrCredentialsRequired)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsCaptchaDisabled(err error) bool {
	return errors.Is(err, ErrCaptchaDisabled)
}

func IsSlugInUse(err error) bool {
	return errors.Is(err, ErrSlugInUse)
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsLocationNotFound(err error) bool {
	return errors.Is(err, ErrLocationNotFound)
}

func IsCaptureFailed(err error) bool {
	return errors.Is(err, ErrCaptureFailed)
}

// IsValidationError reports errors caused by malformed input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrPhoneNumberRequired) ||
		errors.Is(err, ErrPhoneNumberTooLong) ||
		errors.Is(err, ErrLinkIDRequired) ||
		errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, ErrUnsupportedExportFormat)
}
