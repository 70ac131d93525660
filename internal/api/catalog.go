package api

import (
	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/catalog"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles GET /api/catalog, optionally filtered by ?theme=
func CatalogHandler(c *fiber.Ctx) error {
	raw := c.Query("theme")
	if raw == "" {
		return response.Success(c, fiber.Map{"passages": catalog.All()})
	}

	theme, ok := models.ParseThemeTag(raw)
	if !ok {
		return response.BadRequest(c, request.GetRequestID(c), "Unknown theme")
	}

	passages := catalog.ByTheme(theme)
	if passages == nil {
		passages = []catalog.Entry{}
	}
	return response.Success(c, fiber.Map{"theme": theme, "passages": passages})
}

// ThemesHandler handles GET /api/catalog/themes
func ThemesHandler(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{"themes": models.ThemeTags})
}
