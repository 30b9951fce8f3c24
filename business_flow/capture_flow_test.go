package businessflow_test

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/models"
	testingutil "github.com/hendarSu/locationtracker/testing"
	"github.com/hendarSu/locationtracker/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCaptureLocation(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		flows := newTestFlows(tdb)
		fixtures := testingutil.NewTestFixtures(tdb)
		ctx := testingutil.CreateTestContext()

		link, err := fixtures.CreateTestLinkWithID("capture-me", "+62811", utils.UTCNow())
		require.NoError(t, err)

		lastRecord := func(t *testing.T) models.LocationRecord {
			var r models.LocationRecord
			require.NoError(t, tdb.DB.Order("id DESC").Take(&r).Error)
			return r
		}

		t.Run("ResolvesPhoneFromLink", func(t *testing.T) {
			flows.cache.reset()
			before := utils.UTCNow()
			err := flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{
				TrackingID:    link.ID,
				Latitude:      -6.2,
				Longitude:     106.8,
				UserAgent:     "Mozilla/5.0",
				FallbackPhone: "+62000",
			})
			require.NoError(t, err)

			r := lastRecord(t)
			assert.Equal(t, link.ID, r.TrackingID)
			assert.Equal(t, "+62811", r.PhoneNumber)
			assert.InDelta(t, -6.2, r.Latitude, 1e-9)
			assert.InDelta(t, 106.8, r.Longitude, 1e-9)
			assert.Equal(t, "Mozilla/5.0", utils.Deref(r.Browser))
			assert.WithinDuration(t, before, r.Timestamp, 5*time.Second)

			keys := flows.cache.invalidatedKeys()
			assert.Contains(t, keys, utils.ProfileCacheKey("+62811"))
			assert.Contains(t, keys, utils.LinksListCacheKey)
		})

		t.Run("FallbackPhoneWhenLinkMissing", func(t *testing.T) {
			require.NoError(t, flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{
				TrackingID: "gone", Latitude: 1, Longitude: 2, FallbackPhone: " +62999 ",
			}))
			r := lastRecord(t)
			assert.Equal(t, "gone", r.TrackingID)
			assert.Equal(t, "+62999", r.PhoneNumber)
		})

		t.Run("UnknownWhenNothingResolves", func(t *testing.T) {
			require.NoError(t, flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{
				TrackingID: "gone", Latitude: 1, Longitude: 2,
			}))
			r := lastRecord(t)
			assert.Equal(t, models.UnknownPhoneNumber, r.PhoneNumber)
			assert.Nil(t, r.Browser)
		})

		t.Run("Validation", func(t *testing.T) {
			cases := []businessflow.CaptureRequest{
				{TrackingID: "", Latitude: 0, Longitude: 0},
				{TrackingID: "x", Latitude: 90.1, Longitude: 0},
				{TrackingID: "x", Latitude: -91, Longitude: 0},
				{TrackingID: "x", Latitude: 0, Longitude: 180.5},
				{TrackingID: "x", Latitude: math.NaN(), Longitude: 0},
			}
			for _, c := range cases {
				err := flows.capture.CaptureLocation(ctx, c)
				assert.True(t, businessflow.IsValidationError(err), "%+v", c)
			}
			assert.NoError(t, flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{TrackingID: "x", Latitude: 90, Longitude: -180}))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCaptureLocationStoreFailure(t *testing.T) {
	tdb, err := testingutil.SetupBareTestDB()
	require.NoError(t, err)
	defer tdb.TeardownTestDB()

	// no tables at all: the lookup degrades, the insert fails
	flows := newTestFlows(tdb)
	err = flows.capture.CaptureLocation(testingutil.CreateTestContext(), businessflow.CaptureRequest{
		TrackingID: "abc", Latitude: 1, Longitude: 1,
	})
	require.Error(t, err)
	assert.True(t, businessflow.IsCaptureFailed(err))

	var be *businessflow.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Failed to save location data", be.Message)
}

func TestLocationHistoryAndRecent(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		flows := newTestFlows(tdb)
		fixtures := testingutil.NewTestFixtures(tdb)
		ctx := testingutil.CreateTestContext()
		now := utils.UTCNow()

		a, err := fixtures.CreateTestLink("+62811", now)
		require.NoError(t, err)
		b, err := fixtures.CreateTestLink("+62922", now)
		require.NoError(t, err)

		var aRecords []*models.LocationRecord
		for i := 0; i < 3; i++ {
			r, err := fixtures.CreateTestLocation(a.ID, a.PhoneNumber, now.Add(-time.Duration(3-i)*time.Hour))
			require.NoError(t, err)
			aRecords = append(aRecords, r)
		}
		for i := 0; i < 12; i++ {
			_, err := fixtures.CreateTestLocation(b.ID, b.PhoneNumber, now.Add(-time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		t.Run("HistoryNewestFirst", func(t *testing.T) {
			history, err := flows.capture.GetLocationHistory(ctx, "+62811")
			require.NoError(t, err)
			require.Len(t, history.Items, 3)
			assert.Equal(t, aRecords[2].ID, history.Items[0].ID)
			assert.Equal(t, aRecords[0].ID, history.Items[2].ID)
			assert.True(t, flows.cache.has(utils.ProfileCacheKey("+62811")))
		})

		t.Run("HistoryUnknownPhoneIsEmpty", func(t *testing.T) {
			history, err := flows.capture.GetLocationHistory(ctx, "+000")
			require.NoError(t, err)
			assert.NotNil(t, history.Items)
			assert.Empty(t, history.Items)
		})

		t.Run("CaptureRefreshesCachedHistory", func(t *testing.T) {
			require.NoError(t, flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{TrackingID: a.ID, Latitude: 3, Longitude: 4}))
			history, err := flows.capture.GetLocationHistory(ctx, "+62811")
			require.NoError(t, err)
			assert.Len(t, history.Items, 4)
		})

		t.Run("RecentDefaultLimit", func(t *testing.T) {
			recent, err := flows.capture.GetRecentLocations(ctx, 0, "")
			require.NoError(t, err)
			require.Len(t, recent.Items, utils.RecentLocationsDefaultLimit)
			for i := 1; i < len(recent.Items); i++ {
				assert.False(t, recent.Items[i].Timestamp.After(recent.Items[i-1].Timestamp))
			}
		})

		t.Run("RecentFilteredAndCapped", func(t *testing.T) {
			recent, err := flows.capture.GetRecentLocations(ctx, 1000, "811")
			require.NoError(t, err)
			assert.Len(t, recent.Items, 4)
			for _, item := range recent.Items {
				assert.Equal(t, "+62811", item.PhoneNumber)
			}
		})

		t.Run("DeleteLocation", func(t *testing.T) {
			flows.cache.reset()
			deleted, err := flows.capture.DeleteLocation(ctx, aRecords[0].ID)
			require.NoError(t, err)
			assert.True(t, deleted)
			assert.Contains(t, flows.cache.invalidatedKeys(), utils.ProfileCacheKey("+62811"))

			history, err := flows.capture.GetLocationHistory(ctx, "+62811")
			require.NoError(t, err)
			assert.Len(t, history.Items, 3)

			var total int64
			require.NoError(t, tdb.DB.Model(&models.LocationRecord{}).Count(&total).Error)
			assert.Equal(t, int64(15), total)

			deleted, err = flows.capture.DeleteLocation(ctx, aRecords[0].ID)
			require.NoError(t, err)
			assert.False(t, deleted)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportLocationHistory(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		flows := newTestFlows(tdb)
		fixtures := testingutil.NewTestFixtures(tdb)
		ctx := testingutil.CreateTestContext()
		now := utils.UTCNow()

		link, err := fixtures.CreateTestLink("+62 811", now)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err := fixtures.CreateTestLocation(link.ID, link.PhoneNumber, now.Add(-time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}

		t.Run("CSV", func(t *testing.T) {
			file, err := flows.capture.ExportLocationHistory(ctx, "+62 811", "")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(file.Filename, "locations_62_811_"))
			assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
			assert.Contains(t, file.ContentType, "text/csv")

			records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, []string{"id", "tracking_id", "phone_number", "latitude", "longitude", "browser", "timestamp"}, records[0])
			assert.Equal(t, link.ID, records[1][1])
			assert.Equal(t, "'+62 811", records[1][2])
			assert.Equal(t, "-6.2088", records[1][3])
		})

		t.Run("XLSX", func(t *testing.T) {
			file, err := flows.capture.ExportLocationHistory(ctx, "+62 811", "XLSX")
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(file.Filename, ".xlsx"))

			xl, err := excelize.OpenReader(bytes.NewReader(file.Content))
			require.NoError(t, err)
			defer xl.Close()
			rows, err := xl.GetRows("Locations")
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, "phone_number", rows[0][2])
			assert.Equal(t, "+62 811", rows[2][2])
		})

		t.Run("UnsupportedFormat", func(t *testing.T) {
			_, err := flows.capture.ExportLocationHistory(ctx, "+62 811", "pdf")
			assert.True(t, businessflow.IsValidationError(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportNeutralizesFormulaCells(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		flows := newTestFlows(tdb)
		ctx := testingutil.CreateTestContext()
		const (
			phone = "=1+2"
			agent = "@SUM(A1:A9)"
		)

		require.NoError(t, flows.capture.CaptureLocation(ctx, businessflow.CaptureRequest{
			TrackingID:    "-cmd",
			Latitude:      1,
			Longitude:     2,
			UserAgent:     agent,
			FallbackPhone: phone,
		}))

		t.Run("CSV", func(t *testing.T) {
			file, err := flows.capture.ExportLocationHistory(ctx, phone, "csv")
			require.NoError(t, err)
			records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "'-cmd", records[1][1])
			assert.Equal(t, "'=1+2", records[1][2])
			assert.Equal(t, "1", records[1][3])
			assert.Equal(t, "'@SUM(A1:A9)", records[1][5])
		})

		t.Run("XLSX", func(t *testing.T) {
			file, err := flows.capture.ExportLocationHistory(ctx, phone, "xlsx")
			require.NoError(t, err)
			xl, err := excelize.OpenReader(bytes.NewReader(file.Content))
			require.NoError(t, err)
			defer xl.Close()

			for cell, want := range map[string]string{"B2": "-cmd", "C2": phone, "F2": agent} {
				formula, err := xl.GetCellFormula("Locations", cell)
				require.NoError(t, err)
				assert.Empty(t, formula, cell)
				value, err := xl.GetCellValue("Locations", cell)
				require.NoError(t, err)
				assert.Equal(t, want, value, cell)
			}
		})
		return nil
	})
	require.NoError(t, err)
}
