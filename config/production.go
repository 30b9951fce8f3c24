// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	App      AppConfig      `json:"app"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Security SecurityConfig `json:"security"`
	Session  SessionConfig  `json:"session"`
	Admin    AdminConfig    `json:"admin"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Cache    CacheConfig    `json:"cache"`
}

type AppConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	// PublicBaseURL is used to materialize absolute tracking links
	PublicBaseURL string `json:"public_base_url"`
}

type DatabaseConfig struct {
	// Driver is one of: postgres (pgx), pq (lib/pq), sqlite
	Driver          string        `json:"driver"`
	URL             string        `json:"url"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	SQLitePath      string        `json:"sqlite_path"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	AuthRateLimit    int           `json:"auth_rate_limit"`    // requests per window
	CaptureRateLimit int           `json:"capture_rate_limit"` // requests per window
	GlobalRateLimit  int           `json:"global_rate_limit"`  // requests per window
	RateLimitWindow  time.Duration `json:"rate_limit_window"`

	// Cookies
	CookieSecure   bool   `json:"cookie_secure"`
	CookieSameSite string `json:"cookie_samesite"`

	BcryptCost          int  `json:"bcrypt_cost"`
	LoginCaptchaEnabled bool `json:"login_captcha_enabled"`
}

type SessionConfig struct {
	SecretKey string        `json:"-"`
	TTL       time.Duration `json:"ttl"`
	Issuer    string        `json:"issuer"`
	Audience  string        `json:"audience"`
}

type AdminConfig struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis, none
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Missing .env is fine; the process environment is used as-is
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		App: AppConfig{
			Environment:   getEnvString("APP_ENV", "production"),
			Version:       getEnvString("VERSION", "1.0.0"),
			PublicBaseURL: strings.TrimRight(getEnvString("APP_PUBLIC_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			Driver:          getEnvString("DB_DRIVER", "postgres"),
			URL:             getEnvString("DATABASE_URL", ""),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "locationtracker"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			SQLitePath:      getEnvString("DB_SQLITE_PATH", "locationtracker.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 3000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", ""),
		},
		Security: SecurityConfig{
			AllowedOrigins:      getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:          getEnvInt("CORS_MAX_AGE", 86400),
			AuthRateLimit:       getEnvInt("AUTH_RATE_LIMIT", 20),
			CaptureRateLimit:    getEnvInt("CAPTURE_RATE_LIMIT", 30),
			GlobalRateLimit:     getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CookieSecure:        getEnvBool("SESSION_COOKIE_SECURE", false),
			CookieSameSite:      getEnvString("SESSION_COOKIE_SAMESITE", "Lax"),
			BcryptCost:          getEnvInt("BCRYPT_COST", 10),
			LoginCaptchaEnabled: getEnvBool("LOGIN_CAPTCHA_ENABLED", false),
		},
		Session: SessionConfig{
			SecretKey: getEnvString("SESSION_SECRET", ""),
			TTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
			Issuer:    getEnvString("SESSION_ISSUER", "locationtracker"),
			Audience:  getEnvString("SESSION_AUDIENCE", "locationtracker-admin"),
		},
		Admin: AdminConfig{
			Username: getEnvString("ADMIN_USERNAME", "Administrator"),
			Password: getEnvString("ADMIN_PASSWORD", "Adm1nTr4ck3r1995!"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/locationtracker/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "locationtracker:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.Admin.Password == "Adm1nTr4ck3r1995!" && cfg.IsProduction() {
		log.Warn().Str("username", cfg.Admin.Username).Msg("bootstrap administrator uses the default password, set ADMIN_PASSWORD")
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *ProductionConfig) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment reports whether the app runs locally
func (c *ProductionConfig) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

// DSN returns the connection string for the configured driver
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	switch cfg.Database.Driver {
	case "postgres", "pq":
		if cfg.Database.URL == "" {
			if cfg.Database.Host == "" {
				errors = append(errors, "DB_HOST is required when DATABASE_URL is not set")
			}
			if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
				errors = append(errors, "DB_PORT must be between 1 and 65535")
			}
			if cfg.Database.Name == "" {
				errors = append(errors, "DB_NAME is required when DATABASE_URL is not set")
			}
			if cfg.Database.User == "" {
				errors = append(errors, "DB_USER is required when DATABASE_URL is not set")
			}
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errors = append(errors, "DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		errors = append(errors, "DB_DRIVER must be one of: postgres, pq, sqlite")
	}

	// Validate session configuration
	if len(cfg.Session.SecretKey) < 32 {
		errors = append(errors, "SESSION_SECRET must be at least 32 characters long")
	}
	if cfg.Session.TTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}

	// Validate app configuration
	if u, err := url.Parse(cfg.App.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "APP_PUBLIC_URL must be an absolute URL")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate security configuration
	if cfg.Security.BcryptCost < 10 || cfg.Security.BcryptCost > 14 {
		errors = append(errors, "BCRYPT_COST must be between 10 and 14")
	}
	switch cfg.Security.CookieSameSite {
	case "Strict", "Lax", "None":
	default:
		errors = append(errors, "SESSION_COOKIE_SAMESITE must be one of: Strict, Lax, None")
	}

	// Validate admin seed
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		errors = append(errors, "ADMIN_USERNAME and ADMIN_PASSWORD must not be empty")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
