// Package main provides the entry point for the location tracker web application
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/handlers"
	"github.com/hendarSu/locationtracker/app/middleware"
	"github.com/hendarSu/locationtracker/app/router"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/app/templates"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/config"
	_ "github.com/hendarSu/locationtracker/docs"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/repository"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	redis     *redis.Client
	logCloser io.Closer
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.close()

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("address", address).Str("environment", cfg.App.Environment).Msg("server starting")

		if err := app.server.Listen(address, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-sigChan
	log.Info().Msg("shutting down gracefully")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}

	log.Info().Msg("server stopped")
}

func (a *Application) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// initializeDatabase opens the configured driver and applies the pool settings
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "pq":
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: cfg.DSN()})
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(cfg.SlowQueryTime),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("driver", cfg.Driver).
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("database connection established")

	return db, nil
}

// initializeCache returns nil when redis is not configured
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Int("db", cfg.RedisDB).Msg("redis connection established")
	return rc, nil
}

// startCacheHealthMonitor pings redis periodically until the returned function is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn().Err(err).Msg("redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires storage, services, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logCloser := logger.Init(cfg.App.Environment, cfg.Logging)

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var stopFuncs []func()
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval))
	}

	// Repositories
	schemaStore := repository.NewSchemaStore(db)
	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewTrackingLinkRepository(db)
	locationRepo := repository.NewLocationRecordRepository(db)

	// Services
	sessionSvc, err := services.NewSessionService(cfg.Session.TTL, cfg.Session.Issuer, cfg.Session.Audience, cfg.Session.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	var captchaSvc services.CaptchaService
	if cfg.Security.LoginCaptchaEnabled {
		var store services.ChallengeStore = services.NewMemoryChallengeStore()
		if rc != nil {
			store = services.NewRedisChallengeStore(rc, cfg.Cache.RedisPrefix+"captcha:")
		}
		captchaSvc, err = services.NewCaptchaServiceRotate(store, 2*time.Minute, 15, 300)
		if err != nil {
			return nil, fmt.Errorf("failed to create captcha service: %w", err)
		}
	}

	var viewCache services.ViewCache = services.NoopViewCache{}
	if rc != nil {
		viewCache = services.NewRedisViewCache(rc, cfg.Cache.RedisPrefix+"view:", cfg.Cache.DefaultTTL)
	}

	markdown := services.NewMarkdownRenderer()
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}

	// Business flows
	bootstrapFlow := businessflow.NewBootstrapFlow(schemaStore, userRepo, businessflow.AdminSeed{
		Username:   cfg.Admin.Username,
		Password:   cfg.Admin.Password,
		BcryptCost: cfg.Security.BcryptCost,
	})
	loginFlow := businessflow.NewLoginFlow(userRepo, sessionSvc, captchaSvc)
	linkFlow := businessflow.NewTrackingLinkFlow(db, linkRepo, locationRepo, schemaStore, viewCache, markdown, cfg.App.PublicBaseURL)
	captureFlow := businessflow.NewCaptureFlow(linkRepo, locationRepo, viewCache)
	statsFlow := businessflow.NewStatsFlow(linkRepo, locationRepo)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	bootstrapFlow.Bootstrap(bootCtx)
	bootCancel()

	// Handlers
	h := router.Handlers{
		Auth: handlers.NewAuthHandler(loginFlow, handlers.CookieConfig{
			Secure:   cfg.Security.CookieSecure,
			SameSite: cfg.Security.CookieSameSite,
		}),
		Links:     handlers.NewTrackingLinkHandler(linkFlow),
		Capture:   handlers.NewCaptureHandler(captureFlow, linkFlow),
		Locations: handlers.NewLocationHandler(captureFlow, statsFlow),
		Ops:       handlers.NewOpsHandler(bootstrapFlow, rc, cfg.App.Version),
		Pages:     handlers.NewPageHandler(renderer, loginFlow, linkFlow, captureFlow, statsFlow),
	}

	r := router.NewFiberRouter(router.Config{
		Version:          cfg.App.Version,
		ExposeDocs:       cfg.IsDevelopment(),
		BodyLimit:        cfg.Server.BodyLimit,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		ProxyHeader:      cfg.Server.ProxyHeader,
		AllowedOrigins:   cfg.Security.AllowedOrigins,
		AllowCredentials: cfg.Security.AllowCredentials,
		CORSMaxAge:       cfg.Security.CORSMaxAge,
		AuthRateLimit:    cfg.Security.AuthRateLimit,
		CaptureRateLimit: cfg.Security.CaptureRateLimit,
		GlobalRateLimit:  cfg.Security.GlobalRateLimit,
		RateLimitWindow:  cfg.Security.RateLimitWindow,
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsPath:      cfg.Metrics.Path,
	}, h, middleware.NewAuthMiddleware(sessionSvc))

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		redis:     rc,
		logCloser: logCloser,
		stopFuncs: stopFuncs,
	}, nil
}
