package api

import (
	"net/url"
	"testing"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/catalog"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogBody struct {
	Theme    models.ThemeTag `json:"theme"`
	Passages []catalog.Entry `json:"passages"`
}

func TestCatalog(t *testing.T) {
	app := fiber.New()
	app.Get("/api/catalog", CatalogHandler)
	app.Get("/api/catalog/themes", ThemesHandler)

	resp, body := call(t, app, fiber.MethodGet, "/api/catalog", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[catalogBody](t, body).Passages, 12)

	resp, body = call(t, app, fiber.MethodGet, "/api/catalog?theme="+url.QueryEscape("prayer"), nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	filtered := decode[catalogBody](t, body)
	assert.Equal(t, models.ThemePrayer, filtered.Theme)
	require.NotEmpty(t, filtered.Passages)
	for _, p := range filtered.Passages {
		assert.True(t, p.HasTheme(models.ThemePrayer), p.PassageRef)
	}

	resp, _ = call(t, app, fiber.MethodGet, "/api/catalog?theme=Bravery", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, app, fiber.MethodGet, "/api/catalog/themes", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	themes := decode[map[string][]models.ThemeTag](t, body)["themes"]
	assert.Equal(t, models.ThemeTags, themes)
}
