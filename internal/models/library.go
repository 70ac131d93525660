package models

import "time"

// LibraryItem is a story saved to a listener's library
type LibraryItem struct {
	UserID       string     `json:"-" gorm:"primaryKey;type:varchar(255)"`
	Slug         string     `json:"slug" gorm:"primaryKey;type:varchar(255)"`
	Title        string     `json:"title" gorm:"type:varchar(255)"`
	Image        string     `json:"image,omitempty" gorm:"type:text"`
	Age          AgeBucket  `json:"age" gorm:"type:varchar(8)"`
	Minutes      int        `json:"minutes"`
	Lang         Language   `json:"lang" gorm:"type:varchar(4)"`
	Favorite     bool       `json:"favorite"`
	ProgressSec  int        `json:"progressSec"`
	LastPlayedAt *time.Time `json:"lastPlayedAt,omitempty" gorm:"index"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (LibraryItem) TableName() string {
	return "library_items"
}
