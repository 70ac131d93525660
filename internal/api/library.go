package api

import (
	"github.com/Egham-7/bedtime-stories/internal/services/auth"
	"github.com/Egham-7/bedtime-stories/internal/services/library"
	"github.com/Egham-7/bedtime-stories/internal/services/request"
	"github.com/Egham-7/bedtime-stories/internal/services/response"

	"github.com/gofiber/fiber/v2"
)

// LibraryHandler exposes the caller's saved stories
type LibraryHandler struct {
	store *library.Store
}

func NewLibraryHandler(store *library.Store) *LibraryHandler {
	return &LibraryHandler{store: store}
}

type progressRequest struct {
	ProgressSec *int `json:"progressSec"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// List handles GET /api/library
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	items, err := h.store.List(c.UserContext(), auth.GetUserID(c))
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, fiber.Map{"items": items})
}

// Upsert handles PUT /api/library/:slug
func (h *LibraryHandler) Upsert(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req library.ItemUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, reqID, "Invalid request body")
	}

	item, err := h.store.Upsert(c.UserContext(), auth.GetUserID(c), c.Params("slug"), req)
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, item)
}

// UpdateProgress handles PATCH /api/library/:slug/progress
func (h *LibraryHandler) UpdateProgress(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req progressRequest
	if err := c.BodyParser(&req); err != nil || req.ProgressSec == nil {
		return response.BadRequest(c, reqID, "progressSec is required")
	}
	if *req.ProgressSec < 0 {
		return response.BadRequest(c, reqID, "progressSec must not be negative")
	}

	item, err := h.store.UpdateProgress(c.UserContext(), auth.GetUserID(c), c.Params("slug"), *req.ProgressSec)
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, item)
}

// SetFavorite handles PATCH /api/library/:slug/favorite
func (h *LibraryHandler) SetFavorite(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	var req favoriteRequest
	if err := c.BodyParser(&req); err != nil || req.Favorite == nil {
		return response.BadRequest(c, reqID, "favorite is required")
	}

	item, err := h.store.SetFavorite(c.UserContext(), auth.GetUserID(c), c.Params("slug"), *req.Favorite)
	if err != nil {
		return response.Error(c, reqID, err)
	}
	return response.Success(c, item)
}

// Delete handles DELETE /api/library/:slug
func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	reqID := request.GetRequestID(c)

	if err := h.store.Delete(c.UserContext(), auth.GetUserID(c), c.Params("slug")); err != nil {
		return response.Error(c, reqID, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
