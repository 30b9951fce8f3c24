// Package testing provides test utilities and database setup for testing the location tracker
package testing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hendarSu/locationtracker/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables.
// The default driver is an in-memory sqlite database; set TEST_DB_DRIVER=postgres
// to run against a real server.
func GetTestDBConfig() *TestDBConfig {
	return &TestDBConfig{
		Driver:   getEnv("TEST_DB_DRIVER", "sqlite"),
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
}

// TestDB represents a test database instance
type TestDB struct {
	DB     *gorm.DB
	Name   string
	Schema *repository.SchemaStoreImpl
	config *TestDBConfig
}

// SetupTestDB creates an isolated database with the fully migrated schema
func SetupTestDB() (*TestDB, error) {
	tdb, err := SetupBareTestDB()
	if err != nil {
		return nil, err
	}
	ctx := CreateTestContext()
	if err := tdb.Schema.EnsureBaseSchema(ctx); err != nil {
		_ = tdb.TeardownTestDB()
		return nil, fmt.Errorf("failed to create base schema: %w", err)
	}
	if _, err := tdb.Schema.EnsureExtendedColumns(ctx); err != nil {
		_ = tdb.TeardownTestDB()
		return nil, fmt.Errorf("failed to add extended columns: %w", err)
	}
	return tdb, nil
}

// SetupLegacyTestDB creates an isolated database holding only the base schema,
// as a deployment that predates the presentation columns would
func SetupLegacyTestDB() (*TestDB, error) {
	tdb, err := SetupBareTestDB()
	if err != nil {
		return nil, err
	}
	if err := tdb.Schema.EnsureBaseSchema(CreateTestContext()); err != nil {
		_ = tdb.TeardownTestDB()
		return nil, fmt.Errorf("failed to create base schema: %w", err)
	}
	return tdb, nil
}

// SetupBareTestDB creates an isolated empty database
func SetupBareTestDB() (*TestDB, error) {
	config := GetTestDBConfig()
	if config.Driver == "postgres" {
		return setupPostgresTestDB(config)
	}

	name := uuid.NewString()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite test database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// a single connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	return &TestDB{
		DB:     db,
		Name:   name,
		Schema: repository.NewSchemaStore(db),
		config: config,
	}, nil
}

func (c *TestDBConfig) serverDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
}

// adminExec runs statements against the server's maintenance database
func (c *TestDBConfig) adminExec(statements ...string) error {
	adminDB, err := gorm.Open(postgres.Open(c.serverDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer func() {
		if sqlDB, err := adminDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	for _, stmt := range statements {
		if err := adminDB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func setupPostgresTestDB(config *TestDBConfig) (*TestDB, error) {
	dbName := "locationtracker_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := config.adminExec("CREATE DATABASE " + dbName); err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}

	db, err := gorm.Open(postgres.Open(config.serverDSN()+" dbname="+dbName), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database %s: %w", dbName, err)
	}

	return &TestDB{
		DB:     db,
		Name:   dbName,
		Schema: repository.NewSchemaStore(db),
		config: config,
	}, nil
}

// TeardownTestDB closes the connection and drops the database where needed
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}
	if sqlDB, err := tdb.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// the in-memory database disappears with its last connection
	if tdb.config.Driver != "postgres" {
		return nil
	}

	err := tdb.config.adminExec(
		fmt.Sprintf("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s' AND pid <> pg_backend_pid()", tdb.Name),
		"DROP DATABASE IF EXISTS "+tdb.Name,
	)
	if err != nil {
		log.Warn().Err(err).Str("database", tdb.Name).Msg("failed to drop test database")
	}
	return err
}

// ClearAllTables removes all rows while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	for _, table := range []string{"location_data", "tracking_links", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// TestWithDB sets up a migrated test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	return withDB(SetupTestDB, testFunc)
}

// TestWithLegacyDB is TestWithDB over a database without the presentation columns
func TestWithLegacyDB(testFunc func(*TestDB) error) error {
	return withDB(SetupLegacyTestDB, testFunc)
}

func withDB(setup func() (*TestDB, error), testFunc func(*TestDB) error) error {
	testDB, err := setup()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Warn().Err(cleanupErr).Msg("failed to clean up test database")
		}
	}()
	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
