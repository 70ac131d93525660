package models

import "time"

// ParentalSchemaVersion is the only settings layout the service understands
const ParentalSchemaVersion = 1

// ChildProfile describes one listener managed by a parent
type ChildProfile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Age            AgeBucket `json:"age"`
	Lang           Language  `json:"lang"`
	DefaultMinutes int       `json:"defaultMinutes"`
}

// ParentalSettings are the per-user parental controls
type ParentalSettings struct {
	UserID        string `json:"-" gorm:"primaryKey;type:varchar(255)"`
	Schema        int    `json:"schema"`
	PinHash       string `json:"-" gorm:"type:varchar(64)"`
	ActiveChildID string `json:"activeChildId,omitempty" gorm:"type:varchar(255)"`

	RestrictByAge    bool     `json:"restrictByAge"`
	HiddenStorySlugs []string `json:"hiddenStorySlugs" gorm:"serializer:json;type:text"`

	MaxMinutes          *int `json:"maxMinutes,omitempty"`
	DisableDownloads    bool `json:"disableDownloads"`
	DisableAutoplayNext bool `json:"disableAutoplayNext"`
	EnforceSleepTimer   *int `json:"enforceSleepTimer,omitempty"`

	BedtimeFrom string `json:"bedtimeFrom,omitempty" gorm:"type:varchar(5)"` // "HH:MM"
	BedtimeTo   string `json:"bedtimeTo,omitempty" gorm:"type:varchar(5)"`   // "HH:MM"

	ShowScripture  bool `json:"showScripture"`
	ShowPrayer     bool `json:"showPrayer"`
	ShowDiscussion bool `json:"showDiscussion"`

	LockLanguage     bool `json:"lockLanguage"`
	AnalyticsEnabled bool `json:"analyticsEnabled"`

	Children []ChildProfile `json:"children" gorm:"serializer:json;type:text"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func (ParentalSettings) TableName() string {
	return "parental_settings"
}

// DefaultParentalSettings returns the settings a new household starts with
func DefaultParentalSettings() ParentalSettings {
	return ParentalSettings{
		Schema:              ParentalSchemaVersion,
		RestrictByAge:       true,
		HiddenStorySlugs:    []string{},
		DisableDownloads:    false,
		DisableAutoplayNext: true,
		ShowScripture:       true,
		ShowPrayer:          true,
		ShowDiscussion:      true,
		LockLanguage:        false,
		AnalyticsEnabled:    false,
		Children:            []ChildProfile{},
	}
}

// ActiveChild returns the selected child profile, if any
func (s *ParentalSettings) ActiveChild() *ChildProfile {
	if s.ActiveChildID == "" {
		return nil
	}
	for i := range s.Children {
		if s.Children[i].ID == s.ActiveChildID {
			return &s.Children[i]
		}
	}
	return nil
}
