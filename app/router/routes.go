// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/app/handlers"
	"github.com/hendarSu/locationtracker/app/middleware"
	"github.com/hendarSu/locationtracker/docs"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/swaggo/swag"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	GetApp() *fiber.App
}

// Config holds the server and middleware settings the router needs
type Config struct {
	Version          string
	ExposeDocs       bool
	BodyLimit        int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ProxyHeader      string
	AllowedOrigins   []string
	AllowCredentials bool
	CORSMaxAge       int
	AuthRateLimit    int
	CaptureRateLimit int
	GlobalRateLimit  int
	RateLimitWindow  time.Duration
	MetricsEnabled   bool
	MetricsPath      string
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth      handlers.AuthHandlerInterface
	Links     handlers.TrackingLinkHandlerInterface
	Capture   handlers.CaptureHandlerInterface
	Locations handlers.LocationHandlerInterface
	Ops       handlers.OpsHandlerInterface
	Pages     handlers.PageHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      Config
	handlers Handlers
	auth     *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg Config, h Handlers, auth *middleware.AuthMiddleware) *FiberRouter {
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.CORSMaxAge == 0 {
		cfg.CORSMaxAge = utils.CORSMaxAge
	}

	app := fiber.New(fiber.Config{
		AppName:      "Location Tracker",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ProxyHeader:  cfg.ProxyHeader,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		auth:     auth,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.MetricsEnabled {
		r.app.Get(r.cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Operational endpoints
	r.app.Get("/api/setup-db", r.handlers.Ops.SetupDB)
	r.app.Get("/api/migrate", r.handlers.Ops.Migrate)
	r.app.Get("/api/test-db", r.handlers.Ops.TestDB)

	api := r.app.Group("/api")
	api.Use(r.rateLimiter(r.cfg.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))

	// Authentication
	auth := api.Group("/auth")
	auth.Use(r.rateLimiter(r.cfg.AuthRateLimit, nil))
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/logout", r.handlers.Auth.Logout)
	auth.Get("/captcha", r.handlers.Auth.InitCaptcha)
	auth.Get("/me", r.auth.RequireIdentity(), r.handlers.Auth.Me)

	// Public capture endpoints used by the tracking page
	api.Get("/links/:id", r.handlers.Capture.GetPublicLink)
	api.Post("/track/:id", r.rateLimiter(r.cfg.CaptureRateLimit, nil), r.handlers.Capture.CaptureLocation)

	v1 := api.Group("/v1")
	v1.Get("/health", r.handlers.Ops.Health)
	if r.cfg.ExposeDocs {
		v1.Get("/swagger.json", r.serveSwaggerJSON)
	}

	// Administrator API. The guard is attached per route so unknown paths still 404.
	admin := r.auth.RequireIdentity()
	v1.Post("/links", admin, r.handlers.Links.CreateLink)
	v1.Get("/links", admin, r.handlers.Links.ListLinks)
	v1.Get("/links/:id", admin, r.handlers.Links.GetLink)
	v1.Delete("/links/:id", admin, r.handlers.Links.DeleteLink)
	v1.Get("/stats", admin, r.handlers.Locations.GetStats)
	v1.Get("/locations/recent", admin, r.handlers.Locations.GetRecentLocations)
	v1.Delete("/locations/:id", admin, r.handlers.Locations.DeleteLocation)
	v1.Get("/profiles/:phone/locations", admin, r.handlers.Locations.GetLocationHistory)
	v1.Get("/profiles/:phone/export", admin, r.handlers.Locations.ExportLocationHistory)

	// Pages
	guard := r.auth.PageGuard()
	r.app.Get("/", guard, r.handlers.Pages.Root)
	r.app.Get("/login", guard, r.handlers.Pages.Login)
	r.app.Get("/dashboard", guard, r.handlers.Pages.Dashboard)
	r.app.Get("/profile/:phone", guard, r.handlers.Pages.Profile)
	r.app.Get("/track/:id", guard, r.handlers.Pages.Track)

	r.app.Use(r.notFoundHandler)

	log.Info().Msg("routes configured")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: generateRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Error().
				Str("request_id", requestid.FromContext(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Interface("panic", e).
				Msg("recovered from panic")
		},
	}))

	r.app.Use(middleware.Metrics())
	r.app.Use(middleware.AccessLog("/api/v1/health", r.cfg.MetricsPath))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "0",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(self)",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.AllowedOrigins,
		AllowMethods: []string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodDelete, fiber.MethodHead, fiber.MethodOptions,
		},
		AllowHeaders: []string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			fiber.HeaderXRequestedWith,
			fiber.HeaderXRequestID,
		},
		ExposeHeaders:    []string{fiber.HeaderXRequestID},
		AllowCredentials: r.cfg.AllowCredentials,
		MaxAge:           r.cfg.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == r.cfg.MetricsPath
		},
	}))
}

// rateLimiter limits requests per client IP. A non-positive max disables it.
func (r *FiberRouter) rateLimiter(max int, next func(c fiber.Ctx) bool) fiber.Handler {
	if max <= 0 {
		return func(c fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	requestID := requestid.FromContext(c)
	log.Error().Err(err).Int("status", code).Str("request_id", requestID).Str("path", c.Path()).Msg("request failed")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

func generateRequestID() string {
	return uuid.NewString()
}
