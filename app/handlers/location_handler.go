package handlers

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
)

// LocationHandlerInterface defines the administrator endpoints over captured locations
type LocationHandlerInterface interface {
	GetStats(c fiber.Ctx) error
	GetRecentLocations(c fiber.Ctx) error
	DeleteLocation(c fiber.Ctx) error
	GetLocationHistory(c fiber.Ctx) error
	ExportLocationHistory(c fiber.Ctx) error
}

// LocationHandler serves capture history and dashboard aggregates
type LocationHandler struct {
	captureFlow businessflow.CaptureFlow
	statsFlow   businessflow.StatsFlow
	validator   *validator.Validate
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(captureFlow businessflow.CaptureFlow, statsFlow businessflow.StatsFlow) *LocationHandler {
	return &LocationHandler{
		captureFlow: captureFlow,
		statsFlow:   statsFlow,
		validator:   validator.New(),
	}
}

// GetStats returns live totals and the trailing seven day activity
// @Summary Dashboard statistics
// @Tags Locations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.TrackingStats} "Statistics"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Router /api/v1/stats [get]
func (h *LocationHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/stats")
	defer cancel()

	stats, err := h.statsFlow.ComputeStats(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("compute stats failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute statistics", "STATS_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Statistics retrieved", stats)
}

// GetRecentLocations returns the newest captures across all phone numbers
// @Summary Recent locations
// @Tags Locations
// @Produce json
// @Param limit query int false "Page size (1-100, default 10)"
// @Param q query string false "Phone number substring"
// @Success 200 {object} dto.APIResponse{data=dto.RecentLocationsResponse} "Locations"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/locations/recent [get]
func (h *LocationHandler) GetRecentLocations(c fiber.Ctx) error {
	var req dto.RecentLocationsRequest
	if err := c.Bind().Query(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/locations/recent")
	defer cancel()

	result, err := h.captureFlow.GetRecentLocations(ctx, req.Limit, req.Query)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("recent locations failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch recent locations", "FETCH_LOCATIONS_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Recent locations retrieved", result)
}

// DeleteLocation removes one captured location
// @Summary Delete location
// @Tags Locations
// @Produce json
// @Param id path int true "Location id"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteResponse} "Deleted"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/locations/{id} [delete]
func (h *LocationHandler) DeleteLocation(c fiber.Ctx) error {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid location id", "INVALID_LOCATION_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/locations/:id")
	defer cancel()

	deleted, err := h.captureFlow.DeleteLocation(ctx, uint(id))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Uint64("location_id", id).Msg("delete location failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete location", "LOCATION_DELETE_FAILED", nil)
	}
	if !deleted {
		return ErrorResponse(c, fiber.StatusNotFound, "Location not found", "LOCATION_NOT_FOUND", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Location deleted", dto.DeleteResponse{ID: raw, Deleted: true})
}

// GetLocationHistory returns every capture for a phone number, newest first
// @Summary Location history
// @Tags Locations
// @Produce json
// @Param phone path string true "Phone number (path escaped)"
// @Success 200 {object} dto.APIResponse{data=dto.LocationHistoryResponse} "History"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/profiles/{phone}/locations [get]
func (h *LocationHandler) GetLocationHistory(c fiber.Ctx) error {
	phone, ok := phoneParam(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid phone number", "INVALID_PHONE_NUMBER", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profiles/:phone/locations")
	defer cancel()

	history, err := h.captureFlow.GetLocationHistory(ctx, phone)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusBadRequest, businessMessage(err, "Validation failed"), "VALIDATION_ERROR", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("location history failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch location history", "FETCH_LOCATIONS_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Location history retrieved", history)
}

// ExportLocationHistory downloads a phone number's history as CSV or XLSX
// @Summary Export location history
// @Tags Locations
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param phone path string true "Phone number (path escaped)"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file "History file"
// @Failure 400 {object} dto.APIResponse "Unsupported format"
// @Router /api/v1/profiles/{phone}/export [get]
func (h *LocationHandler) ExportLocationHistory(c fiber.Ctx) error {
	phone, ok := phoneParam(c)
	if !ok {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid phone number", "INVALID_PHONE_NUMBER", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profiles/:phone/export")
	defer cancel()

	file, err := h.captureFlow.ExportLocationHistory(ctx, phone, c.Query("format"))
	if err != nil {
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusBadRequest, businessMessage(err, "Validation failed"), "VALIDATION_ERROR", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("export failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export location history", "EXPORT_FAILED", nil)
	}

	c.Attachment(file.Filename)
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.Status(fiber.StatusOK).Send(file.Content)
}

// phoneParam reads the :phone route parameter, undoing path escaping
func phoneParam(c fiber.Ctx) (string, bool) {
	phone, err := url.PathUnescape(c.Params("phone"))
	if err != nil || phone == "" {
		return "", false
	}
	return phone, true
}
