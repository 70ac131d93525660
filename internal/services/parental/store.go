package parental

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MinPINLength is the shortest PIN a parent may set
const MinPINLength = 4

// Store persists parental settings, one row per user
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored settings, or the defaults when the user has none
func (s *Store) Get(ctx context.Context, userID string) (*models.ParentalSettings, error) {
	var settings models.ParentalSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && settings.Schema != models.ParentalSchemaVersion) {
		settings = models.DefaultParentalSettings()
		settings.UserID = userID
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parental settings: %w", err)
	}
	fillEmpty(&settings)
	return &settings, nil
}

// Save merges body over the defaults and stores the result. The PIN is kept
// from the stored settings since it is only changed through SetPIN.
func (s *Store) Save(ctx context.Context, userID string, body []byte) (*models.ParentalSettings, error) {
	settings := models.DefaultParentalSettings()
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, models.NewValidationError("invalid parental settings", err)
	}
	if err := normalize(&settings); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings.UserID = userID
	settings.Schema = models.ParentalSchemaVersion
	settings.PinHash = current.PinHash

	if err := s.upsert(ctx, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetPIN stores the hash of pin
func (s *Store) SetPIN(ctx context.Context, userID, pin string) error {
	if len(strings.TrimSpace(pin)) < MinPINLength {
		return models.NewValidationError(fmt.Sprintf("PIN must be at least %d digits", MinPINLength), nil)
	}

	hash, err := utils.StableHash(pin)
	if err != nil {
		return models.NewInternalError("failed to hash PIN", err)
	}

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	settings.PinHash = hash
	return s.upsert(ctx, settings)
}

// VerifyPIN reports whether pin matches the stored hash; without a PIN nothing matches
func (s *Store) VerifyPIN(ctx context.Context, userID, pin string) (bool, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if settings.PinHash == "" {
		return false, nil
	}

	hash, err := utils.StableHash(pin)
	if err != nil {
		return false, models.NewInternalError("failed to hash PIN", err)
	}
	return hash == settings.PinHash, nil
}

// DeleteUser removes the user's settings
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ParentalSettings{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge parental settings: %w", err)
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, settings *models.ParentalSettings) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(settings).Error
	if err != nil {
		return fmt.Errorf("failed to save parental settings: %w", err)
	}
	return nil
}

func normalize(s *models.ParentalSettings) error {
	for _, hhmm := range []string{s.BedtimeFrom, s.BedtimeTo} {
		if hhmm == "" {
			continue
		}
		if _, ok := parseClock(hhmm); !ok {
			return models.NewValidationError(fmt.Sprintf("invalid bedtime %q, expected HH:MM", hhmm), nil)
		}
	}
	if s.MaxMinutes != nil && *s.MaxMinutes <= 0 {
		return models.NewValidationError("maxMinutes must be positive", nil)
	}

	for i := range s.Children {
		child := &s.Children[i]
		if strings.TrimSpace(child.ID) == "" {
			return models.NewValidationError("every child profile needs an id", nil)
		}
		child.Age = models.NormalizeAgeBucket(string(child.Age))
		child.Lang = models.NormalizeLanguage(string(child.Lang))
	}
	if s.ActiveChildID != "" && s.ActiveChild() == nil {
		s.ActiveChildID = ""
	}

	fillEmpty(s)
	return nil
}

func fillEmpty(s *models.ParentalSettings) {
	if s.HiddenStorySlugs == nil {
		s.HiddenStorySlugs = []string{}
	}
	if s.Children == nil {
		s.Children = []models.ChildProfile{}
	}
}
