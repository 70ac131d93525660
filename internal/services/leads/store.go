package leads

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPlan is recorded when the signup form names no plan
const DefaultPlan = "premium"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store records launch notification signups
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ValidEmail applies the signup form's email check
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Create validates and stores a lead
func (s *Store) Create(ctx context.Context, email, plan, userAgent string) (*models.Lead, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, models.NewValidationError("Invalid email", nil)
	}

	plan = strings.TrimSpace(plan)
	if plan == "" {
		plan = DefaultPlan
	}

	lead := &models.Lead{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		Plan:      plan,
		UserAgent: userAgent,
	}
	if err := s.db.WithContext(ctx).Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}
	return lead, nil
}

// Count returns how many signups were recorded for email
func (s *Store) Count(ctx context.Context, email string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}
