package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
)

// CaptureHandlerInterface defines the public endpoints used by the tracking page
type CaptureHandlerInterface interface {
	CaptureLocation(c fiber.Ctx) error
	GetPublicLink(c fiber.Ctx) error
}

// CaptureHandler handles unauthenticated capture requests
type CaptureHandler struct {
	captureFlow businessflow.CaptureFlow
	linkFlow    businessflow.TrackingLinkFlow
	validator   *validator.Validate
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(captureFlow businessflow.CaptureFlow, linkFlow businessflow.TrackingLinkFlow) *CaptureHandler {
	return &CaptureHandler{
		captureFlow: captureFlow,
		linkFlow:    linkFlow,
		validator:   validator.New(),
	}
}

// CaptureLocation records the position the visitor agreed to share
// @Summary Capture location
// @Description Store a geolocation reading for a tracking link. The user agent is read from the request.
// @Tags Capture
// @Accept json
// @Produce json
// @Param id path string true "Link id"
// @Param phone query string false "Phone number carried by the link, used when the link no longer exists"
// @Param request body dto.CaptureLocationRequest true "Coordinates"
// @Success 201 {object} dto.APIResponse "Location saved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Failed to save location data"
// @Router /api/track/{id} [post]
func (h *CaptureHandler) CaptureLocation(c fiber.Ctx) error {
	trackingID, ok := linkIDParam(c)
	if !ok {
		return invalidLinkID(c)
	}

	var req dto.CaptureLocationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	fallback := strings.TrimSpace(req.Phone)
	if fallback == "" {
		fallback = strings.TrimSpace(c.Query("phone"))
	}

	ctx, cancel := createRequestContext(c, "/api/track/:id")
	defer cancel()

	err := h.captureFlow.CaptureLocation(ctx, businessflow.CaptureRequest{
		TrackingID:    trackingID,
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		FallbackPhone: fallback,
	})
	if err != nil {
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusBadRequest, businessMessage(err, "Validation failed"), "VALIDATION_ERROR", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("capture failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save location data", "CAPTURE_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusCreated, "Location saved", nil)
}

// GetPublicLink returns what the tracking page shows about a link
// @Summary Public link metadata
// @Tags Capture
// @Produce json
// @Param id path string true "Link id"
// @Success 200 {object} dto.APIResponse{data=dto.PublicTrackingLink} "Link"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/links/{id} [get]
func (h *CaptureHandler) GetPublicLink(c fiber.Ctx) error {
	id, ok := linkIDParam(c)
	if !ok {
		return invalidLinkID(c)
	}

	ctx, cancel := createRequestContext(c, "/api/links/:id")
	defer cancel()

	link, err := h.linkFlow.GetPublicLink(ctx, id)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return ErrorResponse(c, fiber.StatusNotFound, "Tracking link not found", "LINK_NOT_FOUND", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("public link lookup failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tracking link", "LINK_LOOKUP_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Tracking link retrieved", link)
}
