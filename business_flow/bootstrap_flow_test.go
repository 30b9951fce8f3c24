package businessflow_test

import (
	"testing"

	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/repository"
	testingutil "github.com/hendarSu/locationtracker/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSeed = businessflow.AdminSeed{
	Username:   "Administrator",
	Password:   "Adm1nTr4ck3r1995!",
	BcryptCost: bcrypt.MinCost,
}

func TestBootstrapSetup(t *testing.T) {
	tdb, err := testingutil.SetupBareTestDB()
	require.NoError(t, err)
	defer tdb.TeardownTestDB()
	ctx := testingutil.CreateTestContext()

	userRepo := repository.NewUserRepository(tdb.DB)
	flow := businessflow.NewBootstrapFlow(tdb.Schema, userRepo, testSeed)

	first, err := flow.Setup(ctx)
	require.NoError(t, err)
	assert.True(t, first.AdminSeeded)
	assert.ElementsMatch(t, models.ExtendedColumns, first.AddedColumns)

	second, err := flow.Setup(ctx)
	require.NoError(t, err)
	assert.False(t, second.AdminSeeded)
	assert.Empty(t, second.AddedColumns)

	count, err := userRepo.Count(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	admin, err := userRepo.ByUsername(ctx, "Administrator")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("Adm1nTr4ck3r1995!")))

	migrated, err := flow.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, migrated.AddedColumns)

	assert.NoError(t, flow.TestConnection(ctx))
}

func TestEnsureAdminSeedNeverFails(t *testing.T) {
	tdb, err := testingutil.SetupBareTestDB()
	require.NoError(t, err)
	defer tdb.TeardownTestDB()
	ctx := testingutil.CreateTestContext()

	flow := businessflow.NewBootstrapFlow(tdb.Schema, repository.NewUserRepository(tdb.DB), testSeed)

	// users table does not exist yet
	assert.NotPanics(t, func() {
		assert.False(t, flow.EnsureAdminSeed(ctx))
	})

	noCreds := businessflow.NewBootstrapFlow(tdb.Schema, repository.NewUserRepository(tdb.DB), businessflow.AdminSeed{})
	assert.False(t, noCreds.EnsureAdminSeed(ctx))
}

func TestEnsureAdminSeedKeepsExistingUser(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(tdb)
		existing, err := fixtures.CreateTestUser("Administrator")
		require.NoError(t, err)

		userRepo := repository.NewUserRepository(tdb.DB)
		flow := businessflow.NewBootstrapFlow(tdb.Schema, userRepo, testSeed)
		assert.False(t, flow.EnsureAdminSeed(ctx))

		admin, err := userRepo.ByUsername(ctx, "Administrator")
		require.NoError(t, err)
		assert.Equal(t, existing.PasswordHash, admin.PasswordHash)
		return nil
	})
	require.NoError(t, err)
}

func TestBootstrapRunsAllSteps(t *testing.T) {
	tdb, err := testingutil.SetupBareTestDB()
	require.NoError(t, err)
	defer tdb.TeardownTestDB()
	ctx := testingutil.CreateTestContext()

	userRepo := repository.NewUserRepository(tdb.DB)
	businessflow.NewBootstrapFlow(tdb.Schema, userRepo, testSeed).Bootstrap(ctx)

	has, err := tdb.Schema.HasExtendedColumns(ctx)
	require.NoError(t, err)
	assert.True(t, has)
	exists, err := userRepo.Exists(ctx, models.UserFilter{Username: &testSeed.Username})
	require.NoError(t, err)
	assert.True(t, exists)
}
