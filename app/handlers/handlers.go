// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/utils"
)

const defaultRequestTimeout = 30 * time.Second

// ErrorResponse writes the failure envelope
func ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse writes the success envelope
func SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validationFailed renders validator errors as a 400 envelope
func validationFailed(c fiber.Ctx, err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "uuid4":
		return err.Field() + " must be a valid challenge id"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// createRequestContext builds the context handed to business flows. It is detached
// from the client connection so a started write runs to completion.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, endpoint, defaultRequestTimeout)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get(fiber.HeaderUserAgent))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	if identity := currentIdentity(c); identity != nil {
		ctx = context.WithValue(ctx, utils.UsernameKey, identity.Username)
	}

	return ctx, cancel
}

func currentIdentity(c fiber.Ctx) *services.Identity {
	identity, _ := c.Locals(utils.IdentityLocalsKey).(*services.Identity)
	return identity
}

// currentUsername is the creator recorded on new links
func currentUsername(c fiber.Ctx) string {
	if identity := currentIdentity(c); identity != nil {
		return identity.Username
	}
	return utils.SystemUsername
}

// linkIDParam reads the :id route parameter of a tracking link. Ids are path escaped in
// shared URLs and fiber matches routes on the raw path.
func linkIDParam(c fiber.Ctx) (string, bool) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func invalidLinkID(c fiber.Ctx) error {
	return ErrorResponse(c, fiber.StatusBadRequest, "Invalid tracking link id", "INVALID_LINK_ID", nil)
}
