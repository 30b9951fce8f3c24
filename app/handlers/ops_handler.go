package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/dto"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/redis/go-redis/v9"
)

// OpsHandlerInterface defines the operational endpoints
type OpsHandlerInterface interface {
	SetupDB(c fiber.Ctx) error
	Migrate(c fiber.Ctx) error
	TestDB(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

// OpsHandler exposes schema bootstrap, migration and connectivity checks
type OpsHandler struct {
	bootstrap businessflow.BootstrapFlow
	redis     *redis.Client
	version   string
}

// NewOpsHandler creates the operational handler. redisClient may be nil when caching is off.
func NewOpsHandler(bootstrap businessflow.BootstrapFlow, redisClient *redis.Client, version string) *OpsHandler {
	return &OpsHandler{
		bootstrap: bootstrap,
		redis:     redisClient,
		version:   version,
	}
}

// SetupDB creates the tables, adds missing columns and seeds the administrator
// @Summary Set up database
// @Tags Operations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SetupResponse} "Database initialized"
// @Failure 500 {object} dto.APIResponse "Setup failed"
// @Router /api/setup-db [get]
func (h *OpsHandler) SetupDB(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/setup-db", 2*time.Minute)
	defer cancel()

	result, err := h.bootstrap.Setup(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("database setup failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to initialize database", "SETUP_FAILED", err.Error())
	}
	return SuccessResponse(c, fiber.StatusOK, "Database initialized successfully", result)
}

// Migrate adds the optional presentation columns when they are missing
// @Summary Migrate database
// @Tags Operations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SetupResponse} "Migration completed"
// @Failure 500 {object} dto.APIResponse "Migration failed"
// @Router /api/migrate [get]
func (h *OpsHandler) Migrate(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/migrate", 2*time.Minute)
	defer cancel()

	result, err := h.bootstrap.Migrate(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("database migration failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to migrate database", "MIGRATION_FAILED", err.Error())
	}
	message := "Database schema is up to date"
	if len(result.AddedColumns) > 0 {
		message = "Database migration completed successfully"
	}
	return SuccessResponse(c, fiber.StatusOK, message, result)
}

// TestDB checks that the database answers
// @Summary Test database connection
// @Tags Operations
// @Produce json
// @Success 200 {object} dto.APIResponse "Connected"
// @Failure 500 {object} dto.APIResponse "Unreachable"
// @Router /api/test-db [get]
func (h *OpsHandler) TestDB(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/test-db", 10*time.Second)
	defer cancel()

	if err := h.bootstrap.TestConnection(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("database connection test failed")
		return ErrorResponse(c, fiber.StatusInternalServerError, "Database connection failed", "DATABASE_UNREACHABLE", err.Error())
	}
	return SuccessResponse(c, fiber.StatusOK, "Database connection successful", nil)
}

// Health reports process, database and cache status
// @Summary Health check
// @Tags Operations
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Healthy"
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse} "Degraded"
// @Router /api/v1/health [get]
func (h *OpsHandler) Health(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/api/v1/health", 5*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: utils.UTCNow().Format(time.RFC3339),
		Version:   h.version,
		Database:  "up",
		Cache:     "disabled",
	}

	if err := h.bootstrap.TestConnection(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "down"
	}
	if h.redis != nil {
		resp.Cache = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Cache = "down"
		}
	}

	if resp.Database == "down" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is degraded",
			Data:    resp,
			Error:   dto.ErrorDetail{Code: "DATABASE_UNREACHABLE"},
		})
	}
	return SuccessResponse(c, fiber.StatusOK, "Service is healthy", resp)
}
