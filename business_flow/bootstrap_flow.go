package businessflow

import (
	"context"

	"github.com/hendarSu/locationtracker/app/dto"
	"github.com/hendarSu/locationtracker/logger"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	"github.com/hendarSu/locationtracker/utils"
	"golang.org/x/crypto/bcrypt"
)

// BootstrapFlow prepares the store: tables, extended columns and the administrator account
type BootstrapFlow interface {
	EnsureBaseSchema(ctx context.Context) error
	EnsureExtendedColumns(ctx context.Context) ([]string, error)
	// EnsureAdminSeed reports whether the administrator was created. It never fails.
	EnsureAdminSeed(ctx context.Context) bool
	// Bootstrap runs every step, logging failures
	Bootstrap(ctx context.Context)
	Setup(ctx context.Context) (*dto.SetupResponse, error)
	Migrate(ctx context.Context) (*dto.SetupResponse, error)
	TestConnection(ctx context.Context) error
}

// AdminSeed is the administrator created on an empty store
type AdminSeed struct {
	Username   string
	Password   string
	BcryptCost int
}

type BootstrapFlowImpl struct {
	schema   repository.SchemaStore
	userRepo repository.UserRepository
	seed     AdminSeed
}

func NewBootstrapFlow(schema repository.SchemaStore, userRepo repository.UserRepository, seed AdminSeed) BootstrapFlow {
	if seed.BcryptCost == 0 {
		seed.BcryptCost = utils.AdminSeedBcryptCost
	}
	return &BootstrapFlowImpl{
		schema:   schema,
		userRepo: userRepo,
		seed:     seed,
	}
}

func (f *BootstrapFlowImpl) EnsureBaseSchema(ctx context.Context) error {
	if err := f.schema.EnsureBaseSchema(ctx); err != nil {
		return NewBusinessError("SCHEMA_SETUP_FAILED", "Failed to create database tables", err)
	}
	return nil
}

func (f *BootstrapFlowImpl) EnsureExtendedColumns(ctx context.Context) ([]string, error) {
	added, err := f.schema.EnsureExtendedColumns(ctx)
	if len(added) > 0 {
		schemaColumnsAddedTotal.Add(float64(len(added)))
		logger.Ctx(ctx).Info().Strs("columns", added).Msg("extended columns added to tracking_links")
	}
	if err != nil {
		return added, NewBusinessError("SCHEMA_MIGRATION_FAILED", "Failed to migrate tracking_links", err)
	}
	return added, nil
}

func (f *BootstrapFlowImpl) EnsureAdminSeed(ctx context.Context) bool {
	log := logger.Ctx(ctx).With().Str("username", f.seed.Username).Logger()

	if f.seed.Username == "" || f.seed.Password == "" {
		log.Warn().Msg("administrator seed skipped, username or password not configured")
		return false
	}

	existing, err := f.userRepo.ByUsername(ctx, f.seed.Username)
	if err != nil {
		log.Error().Err(err).Msg("administrator lookup failed")
		return false
	}
	if existing != nil {
		return false
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.seed.Password), f.seed.BcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("administrator password hashing failed")
		return false
	}

	err = f.userRepo.Save(ctx, &models.User{
		Username:     f.seed.Username,
		PasswordHash: string(hash),
		CreatedAt:    utils.UTCNow(),
	})
	if err != nil {
		if repository.IsDuplicateKey(err) {
			// seeded concurrently by another instance
			return false
		}
		log.Error().Err(err).Msg("administrator seed failed")
		return false
	}

	log.Info().Msg("administrator account created")
	return true
}

func (f *BootstrapFlowImpl) Bootstrap(ctx context.Context) {
	if err := f.EnsureBaseSchema(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("base schema setup failed")
		return
	}
	if _, err := f.EnsureExtendedColumns(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("extended column migration failed")
	}
	f.EnsureAdminSeed(ctx)
}

// Setup creates tables, migrates them and seeds the administrator
func (f *BootstrapFlowImpl) Setup(ctx context.Context) (*dto.SetupResponse, error) {
	if err := f.EnsureBaseSchema(ctx); err != nil {
		return nil, err
	}
	added, err := f.EnsureExtendedColumns(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SetupResponse{
		AddedColumns: added,
		AdminSeeded:  f.EnsureAdminSeed(ctx),
	}, nil
}

// Migrate only adds missing extended columns
func (f *BootstrapFlowImpl) Migrate(ctx context.Context) (*dto.SetupResponse, error) {
	added, err := f.EnsureExtendedColumns(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SetupResponse{AddedColumns: added}, nil
}

func (f *BootstrapFlowImpl) TestConnection(ctx context.Context) error {
	if err := f.schema.Ping(ctx); err != nil {
		return NewBusinessError("DATABASE_UNREACHABLE", "Database connection failed", err)
	}
	return nil
}
