package models

import "time"

// Lead is an email captured from the launch notification form
type Lead struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"type:varchar(320);index"`
	Plan      string    `json:"plan" gorm:"type:varchar(32)"`
	UserAgent string    `json:"userAgent,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Lead) TableName() string {
	return "leads"
}
