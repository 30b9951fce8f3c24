package businessflow_test

import (
	"encoding/json"
	"testing"
	"time"

	testingutil "github.com/hendarSu/locationtracker/testing"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsEmptyStore(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		stats, err := newTestFlows(tdb).stats.ComputeStats(testingutil.CreateTestContext())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalLinks)
		assert.Zero(t, stats.TotalLocations)
		assert.Zero(t, stats.UniquePhones)
		assert.NotNil(t, stats.RecentActivity)

		raw, err := json.Marshal(stats)
		require.NoError(t, err)
		assert.JSONEq(t, `{"totalLinks":0,"totalLocations":0,"uniquePhones":0,"recentActivity":[]}`, string(raw))
		return nil
	})
	require.NoError(t, err)
}

func TestComputeStats(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		flows := newTestFlows(tdb)
		fixtures := testingutil.NewTestFixtures(tdb)
		ctx := testingutil.CreateTestContext()
		now := utils.UTCNow()

		a, err := fixtures.CreateTestLink("+62811", now)
		require.NoError(t, err)
		b, err := fixtures.CreateTestLink("+62822", now)
		require.NoError(t, err)
		_, err = fixtures.CreateTestLink("+62833", now)
		require.NoError(t, err)

		// today x2, two days ago x1, ten days ago x1 (outside the window)
		for _, at := range []time.Time{now, now.Add(-time.Minute)} {
			_, err := fixtures.CreateTestLocation(a.ID, a.PhoneNumber, at)
			require.NoError(t, err)
		}
		_, err = fixtures.CreateTestLocation(b.ID, b.PhoneNumber, now.Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = fixtures.CreateTestLocation(b.ID, b.PhoneNumber, now.Add(-10*24*time.Hour))
		require.NoError(t, err)

		stats, err := flows.stats.ComputeStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalLinks)
		assert.Equal(t, int64(4), stats.TotalLocations)
		assert.Equal(t, int64(2), stats.UniquePhones)

		var windowTotal int64
		for i, day := range stats.RecentActivity {
			windowTotal += day.Count
			if i > 0 {
				assert.Greater(t, stats.RecentActivity[i-1].Date, day.Date, "most recent day first")
			}
		}
		assert.Equal(t, int64(3), windowTotal)
		require.NotEmpty(t, stats.RecentActivity)
		assert.Contains(t, []string{utils.DateOnly(now), utils.DateOnly(now.Add(-time.Minute))}, stats.RecentActivity[0].Date)
		assert.Equal(t, utils.DateOnly(now.Add(-48*time.Hour)), stats.RecentActivity[len(stats.RecentActivity)-1].Date)
		return nil
	})
	require.NoError(t, err)
}
