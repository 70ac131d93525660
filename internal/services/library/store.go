package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"gorm.io/gorm"
)

// ItemUpdate is the body of PUT /api/library/:slug. Zero fields keep the stored value.
type ItemUpdate struct {
	Title       string `json:"title"`
	Image       string `json:"image"`
	Age         string `json:"age"`
	Minutes     int    `json:"minutes"`
	Lang        string `json:"lang"`
	Favorite    bool   `json:"favorite"`
	ProgressSec int    `json:"progressSec"`
}

// Store persists each user's saved stories
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// List returns the user's items, most recently played first
func (s *Store) List(ctx context.Context, userID string) ([]models.LibraryItem, error) {
	items := []models.LibraryItem{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_played_at IS NULL").
		Order("last_played_at DESC").
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return items, nil
}

// Get returns one item or a not-found error
func (s *Store) Get(ctx context.Context, userID, slug string) (*models.LibraryItem, error) {
	var item models.LibraryItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", userID, slug).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("library item")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get library item: %w", err)
	}
	return &item, nil
}

// Upsert creates the item or merges the non-zero fields of update into it
func (s *Store) Upsert(ctx context.Context, userID, slug string, update ItemUpdate) (*models.LibraryItem, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, models.NewValidationError("slug is required", nil)
	}

	patch := models.LibraryItem{
		Title:       update.Title,
		Image:       update.Image,
		Minutes:     update.Minutes,
		Favorite:    update.Favorite,
		ProgressSec: update.ProgressSec,
	}
	if update.Age != "" {
		patch.Age = models.NormalizeAgeBucket(update.Age)
	}
	if update.Lang != "" {
		patch.Lang = models.NormalizeLanguage(update.Lang)
	}

	var saved models.LibraryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND slug = ?", userID, slug).First(&saved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			saved = patch
			saved.UserID = userID
			saved.Slug = slug
			return tx.Create(&saved).Error
		}
		if err != nil {
			return err
		}

		// Updates with a struct only writes non-zero fields
		if err := tx.Model(&saved).Updates(patch).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND slug = ?", userID, slug).First(&saved).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save library item: %w", err)
	}
	return &saved, nil
}

// UpdateProgress records the playback position and marks the item as just played
func (s *Store) UpdateProgress(ctx context.Context, userID, slug string, progressSec int) (*models.LibraryItem, error) {
	if progressSec < 0 {
		return nil, models.NewValidationError("progressSec must not be negative", nil)
	}
	return s.patch(ctx, userID, slug, map[string]any{
		"progress_sec":   progressSec,
		"last_played_at": s.now().UTC(),
	})
}

// SetFavorite toggles the favorite flag
func (s *Store) SetFavorite(ctx context.Context, userID, slug string, favorite bool) (*models.LibraryItem, error) {
	return s.patch(ctx, userID, slug, map[string]any{"favorite": favorite})
}

func (s *Store) patch(ctx context.Context, userID, slug string, fields map[string]any) (*models.LibraryItem, error) {
	result := s.db.WithContext(ctx).
		Model(&models.LibraryItem{}).
		Where("user_id = ? AND slug = ?", userID, slug).
		Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update library item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NewNotFoundError("library item")
	}
	return s.Get(ctx, userID, slug)
}

// Delete removes one item; deleting a missing item is not an error
func (s *Store) Delete(ctx context.Context, userID, slug string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", userID, slug).
		Delete(&models.LibraryItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete library item: %w", err)
	}
	return nil
}

// DeleteUser removes every item owned by userID
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.LibraryItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge library: %w", err)
	}
	return nil
}
