package api

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Egham-7/bedtime-stories/internal/services/parental"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parentalApp(t *testing.T, now time.Time) *fiber.App {
	t.Helper()
	h := NewParentalHandler(parental.NewStore(newTestDB(t).DB))
	h.now = func() time.Time { return now }
	return newTestApp(func(app *fiber.App) {
		app.Get("/api/parental", h.Get)
		app.Put("/api/parental", h.Save)
		app.Post("/api/parental/pin", h.SetPIN)
		app.Post("/api/parental/pin/verify", h.VerifyPIN)
		app.Get("/api/parental/policy", h.Policy)
	})
}

const householdSettings = `{
  "activeChildId": "c1",
  "restrictByAge": true,
  "hiddenStorySlugs": ["jonah-2"],
  "bedtimeFrom": "19:30",
  "bedtimeTo": "06:30",
  "lockLanguage": true,
  "children": [{"id": "c1", "name": "Mia", "age": "5-8", "lang": "es", "defaultMinutes": 10}]
}`

func TestParental_SettingsAndPIN(t *testing.T) {
	app := parentalApp(t, time.Now())

	resp, body := call(t, app, fiber.MethodGet, "/api/parental", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode[map[string]any](t, body)
	assert.Equal(t, false, got["hasPin"])
	assert.Equal(t, float64(1), got["schema"])
	assert.Equal(t, true, got["restrictByAge"])

	resp, body = call(t, app, fiber.MethodPut, "/api/parental", householdSettings, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	got = decode[map[string]any](t, body)
	assert.Equal(t, "c1", got["activeChildId"])
	assert.Equal(t, true, got["showPrayer"], "unspecified fields keep their defaults")

	resp, _ = call(t, app, fiber.MethodPost, "/api/parental/pin", map[string]any{"pin": "12"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, app, fiber.MethodPost, "/api/parental/pin", map[string]any{"pin": "2468"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = call(t, app, fiber.MethodGet, "/api/parental", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got = decode[map[string]any](t, body)
	assert.Equal(t, true, got["hasPin"])
	assert.NotContains(t, got, "pinHash")
	assert.NotContains(t, got, "PinHash")

	resp, body = call(t, app, fiber.MethodPost, "/api/parental/pin/verify", map[string]any{"pin": "0000"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":false}`, string(body))

	resp, body = call(t, app, fiber.MethodPost, "/api/parental/pin/verify", map[string]any{"pin": "2468"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	resp, _ = call(t, app, fiber.MethodPut, "/api/parental", `{"bedtimeFrom":"7pm"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParental_Policy(t *testing.T) {
	// 21:00 UTC is inside the 19:30-06:30 window, 17:00 in New York is not
	app := parentalApp(t, time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC))

	resp, body := call(t, app, fiber.MethodPut, "/api/parental", householdSettings, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, fiber.MethodGet, "/api/parental/policy?duration=30&slug=daniel-6&ages=5-8,9-12&lang=en&tz=UTC", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"duration":10,"visible":true,"lang":"es","canPlay":false}`, string(body))

	resp, body = call(t, app, fiber.MethodGet, "/api/parental/policy?duration=30&slug=jonah-2&ages=5-8&tz=America/New_York", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"duration":10,"visible":false,"lang":"es","canPlay":true}`, string(body))

	resp, body = call(t, app, fiber.MethodGet, "/api/parental/policy?ages=9-12", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[parental.Decision](t, body).Visible)

	resp, _ = call(t, app, fiber.MethodGet, "/api/parental/policy?tz=Mars/Olympus", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, app, fiber.MethodGet, "/api/parental/policy?duration=abc", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
