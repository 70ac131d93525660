package models

import (
	"strings"
	"time"
)

// PlanCode identifies a subscription tier
type PlanCode string

const (
	PlanFree       PlanCode = "FREE"
	PlanBasic      PlanCode = "BASIC"
	PlanFamily     PlanCode = "FAMILY"
	PlanFamilyPlus PlanCode = "FAMILY_PLUS"
)

// ParsePlanCode uppercases input and reports whether it names a known plan
func ParsePlanCode(raw string) (PlanCode, bool) {
	plan := PlanCode(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := planEntitlements[plan]
	return plan, ok
}

// BillingInterval is the checkout cadence
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// ParseBillingInterval treats anything but "yearly" as monthly
func ParseBillingInterval(raw string) BillingInterval {
	if raw == string(IntervalYearly) {
		return IntervalYearly
	}
	return IntervalMonthly
}

// Entitlements are the usage limits unlocked by a plan
type Entitlements struct {
	Profiles    int  `json:"profiles"`
	Generations int  `json:"generations"`
	Streams     int  `json:"streams"`
	Downloads   bool `json:"downloads"`
}

var planEntitlements = map[PlanCode]Entitlements{
	PlanFree:       {Profiles: 1, Generations: 5, Streams: 1, Downloads: false},
	PlanBasic:      {Profiles: 1, Generations: 25, Streams: 1, Downloads: false},
	PlanFamily:     {Profiles: 5, Generations: 100, Streams: 3, Downloads: false},
	PlanFamilyPlus: {Profiles: 10, Generations: 300, Streams: 5, Downloads: true},
}

// EntitlementsFor returns the limits for a plan; unknown or empty plans get the free tier
func EntitlementsFor(plan string) Entitlements {
	code, ok := ParsePlanCode(plan)
	if !ok {
		return planEntitlements[PlanFree]
	}
	return planEntitlements[code]
}

// Subscription status values mirrored from Stripe
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Subscription is the persisted plan of one user
type Subscription struct {
	UserID               string     `json:"userId" gorm:"primaryKey;type:varchar(255)"`
	Plan                 PlanCode   `json:"plan" gorm:"type:varchar(32);not null;default:'FREE'"`
	Status               string     `json:"status" gorm:"type:varchar(32)"`
	StripeCustomerID     string     `json:"-" gorm:"type:varchar(255);index"`
	StripeSubscriptionID string     `json:"-" gorm:"type:varchar(255);index"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
