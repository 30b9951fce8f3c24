package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/hendarSu/locationtracker/app/handlers"
	"github.com/hendarSu/locationtracker/app/middleware"
	"github.com/hendarSu/locationtracker/app/router"
	"github.com/hendarSu/locationtracker/app/services"
	"github.com/hendarSu/locationtracker/app/templates"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/repository"
	testingutil "github.com/hendarSu/locationtracker/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminUsername = "Administrator"
	testAdminPassword = "correct-horse"
	testBaseURL       = "https://track.example.com"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestApp(t *testing.T, tdb *testingutil.TestDB) *fiber.App {
	t.Helper()

	userRepo := repository.NewUserRepository(tdb.DB)
	linkRepo := repository.NewTrackingLinkRepository(tdb.DB)
	locationRepo := repository.NewLocationRecordRepository(tdb.DB)

	sessions, err := services.NewSessionService(0, "test", "test", "router-test-secret-32-characters!!")
	require.NoError(t, err)
	renderer, err := templates.NewRenderer()
	require.NoError(t, err)

	cache := services.NoopViewCache{}
	bootstrap := businessflow.NewBootstrapFlow(tdb.Schema, userRepo, businessflow.AdminSeed{
		Username:   testAdminUsername,
		Password:   testAdminPassword,
		BcryptCost: bcrypt.MinCost,
	})
	bootstrap.Bootstrap(testingutil.CreateTestContext())

	loginFlow := businessflow.NewLoginFlow(userRepo, sessions, nil)
	linkFlow := businessflow.NewTrackingLinkFlow(tdb.DB, linkRepo, locationRepo, tdb.Schema, cache, services.NewMarkdownRenderer(), testBaseURL)
	captureFlow := businessflow.NewCaptureFlow(linkRepo, locationRepo, cache)
	statsFlow := businessflow.NewStatsFlow(linkRepo, locationRepo)

	r := router.NewFiberRouter(router.Config{
		Version:        "test",
		ExposeDocs:     true,
		MetricsEnabled: true,
	}, router.Handlers{
		Auth:      handlers.NewAuthHandler(loginFlow, handlers.CookieConfig{}),
		Links:     handlers.NewTrackingLinkHandler(linkFlow),
		Capture:   handlers.NewCaptureHandler(captureFlow, linkFlow),
		Locations: handlers.NewLocationHandler(captureFlow, statsFlow),
		Ops:       handlers.NewOpsHandler(bootstrap, nil, "test"),
		Pages:     handlers.NewPageHandler(renderer, loginFlow, linkFlow, captureFlow, statsFlow),
	}, middleware.NewAuthMiddleware(sessions))
	r.SetupRoutes()
	return r.GetApp()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func login(t *testing.T, app *fiber.App) []*http.Cookie {
	t.Helper()
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
		`{"username":"`+testAdminUsername+`","password":"`+testAdminPassword+`"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	names := map[string]*http.Cookie{}
	for _, c := range cookies {
		names[c.Name] = c
	}
	require.Contains(t, names, "auth-session")
	require.Contains(t, names, "auth-user")
	assert.True(t, names["auth-session"].HttpOnly)
	assert.False(t, names["auth-user"].HttpOnly)
	return cookies
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		app := newTestApp(t, tdb)

		t.Run("valid credentials set both cookies", func(t *testing.T) {
			login(t, app)
		})

		t.Run("wrong password", func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login",
				`{"username":"`+testAdminUsername+`","password":"nope"}`))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			env := decode(t, resp)
			assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
		})

		t.Run("missing credentials", func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/login", `{"username":""}`))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})

		t.Run("captcha disabled", func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/captcha", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		})

		t.Run("me requires a session", func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), login(t, app)))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})
		return nil
	})
	require.NoError(t, err)
}

func TestLinkCaptureAndReportFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		app := newTestApp(t, tdb)
		cookies := login(t, app)

		// admin API requires a session
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/links", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		// create
		resp, err = app.Test(withCookies(jsonRequest(http.MethodPost, "/api/v1/links",
			`{"phone_number":"+15551234567","custom_slug":"Promo 1","custom_title":"Summer promo"}`), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var created struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
		assert.Equal(t, "promo-1", created.ID)
		assert.Equal(t, testBaseURL+"/track/promo-1?phone=%2B15551234567", created.URL)

		// same slug again
		resp, err = app.Test(withCookies(jsonRequest(http.MethodPost, "/api/v1/links",
			`{"phone_number":"+15550000000","custom_slug":"promo-1"}`), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "SLUG_IN_USE", decode(t, resp).Error.Code)

		// public metadata hides the phone number
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/links/promo-1", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		public := decode(t, resp)
		assert.Contains(t, string(public.Data), "Summer promo")
		assert.NotContains(t, string(public.Data), "5551234567")

		// tracking page is consent first
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/track/promo-1?phone=%2B15551234567", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))
		page := readBody(t, resp)
		assert.Contains(t, page, "Summer promo")
		assert.Contains(t, page, "Share my location")

		// capture
		req := jsonRequest(http.MethodPost, "/api/track/promo-1", `{"latitude":37.7749,"longitude":-122.4194}`)
		req.Header.Set(fiber.HeaderUserAgent, "TestAgent/1.0")
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		// out of range coordinates
		resp, err = app.Test(jsonRequest(http.MethodPost, "/api/track/promo-1", `{"latitude":91,"longitude":0}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		// history
		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/%2B15551234567/locations", nil), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var history struct {
			PhoneNumber string `json:"phone_number"`
			Items       []struct {
				ID      uint   `json:"id"`
				Browser string `json:"browser"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &history))
		require.Len(t, history.Items, 1)
		assert.Equal(t, "+15551234567", history.PhoneNumber)
		assert.Equal(t, "TestAgent/1.0", history.Items[0].Browser)

		// export
		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/%2B15551234567/export", nil), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
		csvBody := readBody(t, resp)
		assert.True(t, strings.HasPrefix(csvBody, "id,tracking_id,phone_number,latitude,longitude,browser,timestamp"))
		assert.Contains(t, csvBody, "TestAgent/1.0")

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/%2B15551234567/export?format=pdf", nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		// dashboard lists the link
		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/dashboard", nil), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "promo-1")

		// delete the captured location, then the link
		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodDelete, "/api/v1/locations/"+strconv.FormatUint(uint64(history.Items[0].ID), 10), nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodDelete, "/api/v1/links/promo-1", nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodDelete, "/api/v1/links/promo-1", nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		return nil
	})
	require.NoError(t, err)
}

func TestSlugNeedingEscapeRoundTrips(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		app := newTestApp(t, tdb)
		cookies := login(t, app)
		const (
			slug  = "café-promo?"
			phone = "+15551112222"
		)
		escaped := url.PathEscape(slug)

		resp, err := app.Test(withCookies(jsonRequest(http.MethodPost, "/api/v1/links",
			`{"phone_number":"`+phone+`","custom_slug":"Café Promo?","custom_title":"Café deals","custom_content":"# Hello"}`), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		var created struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
		require.Equal(t, slug, created.ID)
		require.True(t, strings.HasPrefix(created.URL, testBaseURL+"/track/"+escaped+"?"))

		// the shared URL renders the link's own page
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(created.URL, testBaseURL), nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		page := readBody(t, resp)
		assert.Contains(t, page, "Café deals")
		assert.Contains(t, page, "<h1>Hello</h1>")

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/links/"+escaped, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		// the page posts to the encoded id
		resp, err = app.Test(jsonRequest(http.MethodPost, "/api/track/"+escaped, `{"latitude":-6.2,"longitude":106.8}`))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/links", nil), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var list struct {
			Items []struct {
				ID            string `json:"id"`
				LocationCount int64  `json:"location_count"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, slug, list.Items[0].ID)
		assert.Equal(t, int64(1), list.Items[0].LocationCount)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/locations/recent", nil), cookies))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var recent struct {
			Items []struct {
				TrackingID  string `json:"tracking_id"`
				PhoneNumber string `json:"phone_number"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &recent))
		require.Len(t, recent.Items, 1)
		assert.Equal(t, slug, recent.Items[0].TrackingID)
		assert.Equal(t, phone, recent.Items[0].PhoneNumber)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/links/"+escaped, nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		// delete takes the captures with it
		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodDelete, "/api/v1/links/"+escaped, nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/locations/recent", nil), cookies))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(decode(t, resp).Data, &recent))
		assert.Empty(t, recent.Items)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodDelete, "/api/v1/links/"+escaped, nil), cookies))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		return nil
	})
	require.NoError(t, err)
}

func TestCaptureForUnknownLinkUsesQueryPhone(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		app := newTestApp(t, tdb)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/track/gone?phone=%2B15559876543", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Location Tracker")

		resp, err = app.Test(jsonRequest(http.MethodPost, "/api/track/gone?phone=%2B15559876543", `{"latitude":1.5,"longitude":2.5}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		resp, err = app.Test(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/%2B15559876543/locations", nil), login(t, app)))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, string(decode(t, resp).Data), `"tracking_id":"gone"`)
		return nil
	})
	require.NoError(t, err)
}

func TestOperationalEndpoints(t *testing.T) {
	err := testingutil.TestWithDB(func(tdb *testingutil.TestDB) error {
		app := newTestApp(t, tdb)

		for _, path := range []string{"/api/setup-db", "/api/migrate", "/api/test-db", "/api/v1/health"} {
			t.Run(path, func(t *testing.T) {
				resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
				require.NoError(t, err)
				assert.Equal(t, fiber.StatusOK, resp.StatusCode)
				assert.True(t, decode(t, resp).Success)
			})
		}

		t.Run("swagger document", func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/swagger.json", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), "/api/track/{id}")
		})

		t.Run("metrics", func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), "locationtracker_http_requests_total")
		})

		t.Run("unknown route", func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

			resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

			resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "NOT_FOUND", decode(t, resp).Error.Code)
		})
		return nil
	})
	require.NoError(t, err)
}
