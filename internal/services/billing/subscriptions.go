package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionStore persists the plan each user is on
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Get returns the user's subscription; users without one are on the free plan
func (s *SubscriptionStore) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Subscription{UserID: userID, Plan: models.PlanFree}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// FindByStripeSubscription returns nil when no user holds stripeSubscriptionID
func (s *SubscriptionStore) FindByStripeSubscription(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, nil
	}

	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &sub, nil
}

// Save inserts or replaces the user's subscription
func (s *SubscriptionStore) Save(ctx context.Context, sub *models.Subscription) error {
	if sub.UserID == "" {
		return models.NewValidationError("subscription has no user", nil)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteUser removes the user's subscription record
func (s *SubscriptionStore) DeleteUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Subscription{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge subscription: %w", err)
	}
	return nil
}

// Entitlement is the body of GET /api/entitlements
type Entitlement struct {
	Plan             models.PlanCode     `json:"plan"`
	Status           string              `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time          `json:"currentPeriodEnd,omitempty"`
	Entitlements     models.Entitlements `json:"entitlements"`
}

// lapsedStatuses no longer grant the paid plan
var lapsedStatuses = map[string]bool{
	models.SubscriptionCanceled: true,
	"unpaid":                    true,
	"incomplete_expired":        true,
}

// Entitlements resolves the limits the user's plan unlocks
func (s *SubscriptionStore) Entitlements(ctx context.Context, userID string) (*Entitlement, error) {
	sub, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, ok := models.ParsePlanCode(string(sub.Plan))
	if !ok || lapsedStatuses[sub.Status] {
		plan = models.PlanFree
	}

	return &Entitlement{
		Plan:             plan,
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		Entitlements:     models.EntitlementsFor(string(plan)),
	}, nil
}
