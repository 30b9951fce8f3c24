package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
)

// TrackingLinkHandlerInterface defines the administrator link endpoints
type TrackingLinkHandlerInterface interface {
	CreateLink(c fiber.Ctx) error
	ListLinks(c fiber.Ctx) error
	GetLink(c fiber.Ctx) error
	DeleteLink(c fiber.Ctx) error
}

// TrackingLinkHandler handles link registry requests
type TrackingLinkHandler struct {
	linkFlow  businessflow.TrackingLinkFlow
	validator *validator.Validate
}

// NewTrackingLinkHandler creates a new tracking link handler
func NewTrackingLinkHandler(linkFlow businessflow.TrackingLinkFlow) *TrackingLinkHandler {
	return &TrackingLinkHandler{
		linkFlow:  linkFlow,
		validator: validator.New(),
	}
}

// CreateLink creates a tracking link for a phone number
// @Summary Create tracking link
// @Description Create a link with a custom slug or a random 16 character id
// @Tags Links
// @Accept json
// @Produce json
// @Param request body dto.CreateTrackingLinkRequest true "Link data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateTrackingLinkResponse} "Link created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 409 {object} dto.APIResponse "Slug already in use"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [post]
func (h *TrackingLinkHandler) CreateLink(c fiber.Ctx) error {
	var req dto.CreateTrackingLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := h.validator.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/links")
	defer cancel()

	result, err := h.linkFlow.CreateLink(ctx, &req, currentUsername(c))
	if err != nil {
		if businessflow.IsSlugInUse(err) {
			return ErrorResponse(c, fiber.StatusConflict, businessMessage(err, "This slug is already in use"), "SLUG_IN_USE", nil)
		}
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusBadRequest, businessMessage(err, "Validation failed"), "VALIDATION_ERROR", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("create tracking link failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create tracking link", "LINK_CREATE_FAILED", nil)
	}

	return SuccessResponse(c, fiber.StatusCreated, "Tracking link created", result)
}

// ListLinks lists links with their capture activity, optionally filtered by q
// @Summary List tracking links
// @Tags Links
// @Produce json
// @Param q query string false "Substring of id, phone number or title"
// @Success 200 {object} dto.APIResponse{data=dto.ListTrackingLinksResponse} "Links"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [get]
func (h *TrackingLinkHandler) ListLinks(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/links")
	defer cancel()

	result, err := h.linkFlow.SearchLinks(ctx, c.Query("q"))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("list tracking links failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tracking links", "LIST_LINKS_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Tracking links retrieved", result)
}

// GetLink returns one link including its phone number
// @Summary Get tracking link
// @Tags Links
// @Produce json
// @Param id path string true "Link id"
// @Success 200 {object} dto.APIResponse{data=dto.TrackingLinkDetail} "Link"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{id} [get]
func (h *TrackingLinkHandler) GetLink(c fiber.Ctx) error {
	id, ok := linkIDParam(c)
	if !ok {
		return invalidLinkID(c)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/links/:id")
	defer cancel()

	result, err := h.linkFlow.GetLinkDetail(ctx, id)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return ErrorResponse(c, fiber.StatusNotFound, "Tracking link not found", "LINK_NOT_FOUND", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Msg("get tracking link failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tracking link", "LINK_LOOKUP_FAILED", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Tracking link retrieved", result)
}

// DeleteLink removes a link together with all of its captured locations
// @Summary Delete tracking link
// @Tags Links
// @Produce json
// @Param id path string true "Link id"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteResponse} "Deleted"
// @Failure 404 {object} dto.APIResponse "Not found"
// @Router /api/v1/links/{id} [delete]
func (h *TrackingLinkHandler) DeleteLink(c fiber.Ctx) error {
	id, ok := linkIDParam(c)
	if !ok {
		return invalidLinkID(c)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/links/:id")
	defer cancel()

	deleted, err := h.linkFlow.DeleteLink(ctx, id)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return ErrorResponse(c, fiber.StatusBadRequest, businessMessage(err, "Validation failed"), "VALIDATION_ERROR", nil)
		}
		logger.Ctx(ctx).Error().Err(err).Str("link_id", id).Msg("delete tracking link failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete tracking link", "LINK_DELETE_FAILED", nil)
	}
	if !deleted {
		return ErrorResponse(c, fiber.StatusNotFound, "Tracking link not found", "LINK_NOT_FOUND", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Tracking link deleted", dto.DeleteResponse{ID: id, Deleted: true})
}
