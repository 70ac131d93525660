package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunClickHouseMigrations creates the tables directly; gorm's AutoMigrate
// does not cope with the ClickHouse driver.
func RunClickHouseMigrations(db *gorm.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS library_items (
			user_id String,
			slug String,
			title String,
			image String,
			age String,
			minutes Int32,
			lang String,
			favorite UInt8,
			progress_sec Int32,
			last_played_at Nullable(DateTime),
			created_at DateTime DEFAULT now(),
			updated_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (user_id, slug)`,

		`CREATE TABLE IF NOT EXISTS parental_settings (
			user_id String,
			schema Int32,
			pin_hash String,
			active_child_id String,
			restrict_by_age UInt8,
			hidden_story_slugs String,
			max_minutes Nullable(Int32),
			disable_downloads UInt8,
			disable_autoplay_next UInt8,
			enforce_sleep_timer Nullable(Int32),
			bedtime_from String,
			bedtime_to String,
			show_scripture UInt8,
			show_prayer UInt8,
			show_discussion UInt8,
			lock_language UInt8,
			analytics_enabled UInt8,
			children String,
			updated_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY user_id`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			user_id String,
			plan String DEFAULT 'FREE',
			status String,
			stripe_customer_id String,
			stripe_subscription_id String,
			current_period_end Nullable(DateTime),
			created_at DateTime DEFAULT now(),
			updated_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY user_id`,

		`CREATE TABLE IF NOT EXISTS leads (
			id String,
			email String,
			plan String,
			user_agent String,
			created_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (created_at, id)`,
	}

	for _, query := range queries {
		if err := db.Exec(query).Error; err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}
