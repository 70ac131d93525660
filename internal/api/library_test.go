package api

import (
	"testing"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/library"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type libraryList struct {
	Items []models.LibraryItem `json:"items"`
}

func libraryApp(t *testing.T) *fiber.App {
	t.Helper()
	h := NewLibraryHandler(library.NewStore(newTestDB(t).DB))
	return newTestApp(func(app *fiber.App) {
		app.Get("/api/library", h.List)
		app.Put("/api/library/:slug", h.Upsert)
		app.Patch("/api/library/:slug/progress", h.UpdateProgress)
		app.Patch("/api/library/:slug/favorite", h.SetFavorite)
		app.Delete("/api/library/:slug", h.Delete)
	})
}

func TestLibrary_Lifecycle(t *testing.T) {
	app := libraryApp(t)
	ana := map[string]string{"X-User-ID": "ana"}

	resp, body := call(t, app, fiber.MethodPut, "/api/library/daniel-6", map[string]any{"title": "Daniel", "age": "5–8", "minutes": 15, "lang": "en"}, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	item := decode[models.LibraryItem](t, body)
	assert.Equal(t, models.AgeEarly, item.Age)

	resp, body = call(t, app, fiber.MethodPut, "/api/library/daniel-6", map[string]any{"minutes": 30}, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	item = decode[models.LibraryItem](t, body)
	assert.Equal(t, "Daniel", item.Title, "zero fields keep stored values")
	assert.Equal(t, 30, item.Minutes)

	resp, body = call(t, app, fiber.MethodPatch, "/api/library/daniel-6/progress", map[string]any{"progressSec": 120}, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	item = decode[models.LibraryItem](t, body)
	assert.Equal(t, 120, item.ProgressSec)
	assert.NotNil(t, item.LastPlayedAt)

	resp, body = call(t, app, fiber.MethodPatch, "/api/library/daniel-6/favorite", map[string]any{"favorite": true}, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.LibraryItem](t, body).Favorite)

	resp, body = call(t, app, fiber.MethodGet, "/api/library", nil, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[libraryList](t, body).Items, 1)

	resp, body = call(t, app, fiber.MethodGet, "/api/library", nil, map[string]string{"X-User-ID": "ben"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[libraryList](t, body).Items)

	resp, _ = call(t, app, fiber.MethodDelete, "/api/library/daniel-6", nil, ana)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = call(t, app, fiber.MethodGet, "/api/library", nil, ana)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[libraryList](t, body).Items)
}

func TestLibrary_PatchErrors(t *testing.T) {
	app := libraryApp(t)

	resp, _ := call(t, app, fiber.MethodPatch, "/api/library/missing/favorite", map[string]any{"favorite": true}, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, fiber.MethodPatch, "/api/library/missing/progress", map[string]any{"progressSec": 5}, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, fiber.MethodPatch, "/api/library/missing/progress", map[string]any{}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, app, fiber.MethodPatch, "/api/library/missing/progress", map[string]any{"progressSec": -1}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
