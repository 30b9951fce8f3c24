package handlers

import (
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/app/templates"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/utils"
)

const defaultTrackTitle = "Location Tracker"

// PageHandlerInterface defines the server-rendered pages
type PageHandlerInterface interface {
	Root(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Dashboard(c fiber.Ctx) error
	Profile(c fiber.Ctx) error
	Track(c fiber.Ctx) error
}

// PageHandler renders the HTML pages
type PageHandler struct {
	renderer    *templates.Renderer
	loginFlow   businessflow.LoginFlow
	linkFlow    businessflow.TrackingLinkFlow
	captureFlow businessflow.CaptureFlow
	statsFlow   businessflow.StatsFlow
}

// NewPageHandler creates a new page handler
func NewPageHandler(
	renderer *templates.Renderer,
	loginFlow businessflow.LoginFlow,
	linkFlow businessflow.TrackingLinkFlow,
	captureFlow businessflow.CaptureFlow,
	statsFlow businessflow.StatsFlow,
) *PageHandler {
	return &PageHandler{
		renderer:    renderer,
		loginFlow:   loginFlow,
		linkFlow:    linkFlow,
		captureFlow: captureFlow,
		statsFlow:   statsFlow,
	}
}

type loginPageData struct {
	CaptchaEnabled bool
	Error          string
}

type dashboardPageData struct {
	User   *services.Identity
	Stats  *models.TrackingStats
	Links  *dto.ListTrackingLinksResponse
	Recent *dto.RecentLocationsResponse
	Query  string
}

type profilePageData struct {
	User    *services.Identity
	Phone   string
	History *dto.LocationHistoryResponse
}

type trackPageData struct {
	TrackingID  string
	Phone       string
	Title       string
	Description string
	ContentHTML template.HTML
}

func (h *PageHandler) render(c fiber.Ctx, status int, page string, data any) error {
	body, err := h.renderer.Render(page, data)
	if err != nil {
		logger.Ctx(c.Context()).Error().Err(err).Str("page", page).Msg("page rendering failed")
		return fiber.NewError(fiber.StatusInternalServerError, "page rendering failed")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(body)
}

// Root sends visitors to the dashboard, which redirects to /login when needed
func (h *PageHandler) Root(c fiber.Ctx) error {
	return c.Redirect().Status(fiber.StatusFound).To("/dashboard")
}

// Login renders the login form
func (h *PageHandler) Login(c fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, templates.PageLogin, loginPageData{
		CaptchaEnabled: h.loginFlow.CaptchaEnabled(),
	})
}

// Dashboard renders stats, the link list and the recent capture feed
func (h *PageHandler) Dashboard(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/dashboard")
	defer cancel()

	query := strings.TrimSpace(c.Query("q"))

	stats, err := h.statsFlow.ComputeStats(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("dashboard stats failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
	}
	links, err := h.linkFlow.SearchLinks(ctx, query)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("dashboard links failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
	}
	recent, err := h.captureFlow.GetRecentLocations(ctx, utils.RecentLocationsDefaultLimit, "")
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("dashboard recent locations failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load dashboard")
	}

	return h.render(c, fiber.StatusOK, templates.PageDashboard, dashboardPageData{
		User:   currentIdentity(c),
		Stats:  stats,
		Links:  links,
		Recent: recent,
		Query:  query,
	})
}

// Profile renders the capture history of one phone number
func (h *PageHandler) Profile(c fiber.Ctx) error {
	phone, ok := phoneParam(c)
	if !ok {
		return c.Redirect().Status(fiber.StatusFound).To("/dashboard")
	}

	ctx, cancel := createRequestContext(c, "/profile/:phone")
	defer cancel()

	history, err := h.captureFlow.GetLocationHistory(ctx, phone)
	if err != nil {
		if businessflow.IsValidationError(err) {
			return c.Redirect().Status(fiber.StatusFound).To("/dashboard")
		}
		logger.Ctx(ctx).Error().Err(err).Msg("profile history failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load profile")
	}

	return h.render(c, fiber.StatusOK, templates.PageProfile, profilePageData{
		User:    currentIdentity(c),
		Phone:   phone,
		History: history,
	})
}

// Track renders the capture page. Nothing is captured until the visitor presses the
// share button and grants the browser permission. Unknown links still render so the
// capture can fall back to the phone number in the query string.
func (h *PageHandler) Track(c fiber.Ctx) error {
	id, ok := linkIDParam(c)
	if !ok {
		return fiber.ErrNotFound
	}

	ctx, cancel := createRequestContext(c, "/track/:id")
	defer cancel()

	data := trackPageData{
		TrackingID: id,
		Phone:      strings.TrimSpace(c.Query("phone")),
		Title:      defaultTrackTitle,
	}

	link, err := h.linkFlow.GetPublicLink(ctx, id)
	switch {
	case err == nil:
		if link.Title != "" {
			data.Title = link.Title
		}
		data.Description = link.Description
		data.ContentHTML = link.ContentHTML
	case businessflow.IsLinkNotFound(err):
	default:
		logger.Ctx(ctx).Warn().Err(err).Str("tracking_id", id).Msg("tracking page metadata unavailable")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return h.render(c, fiber.StatusOK, templates.PageTrack, data)
}
