package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := migrateSubscriptionStatus(db); err != nil {
		return err
	}
	return nil
}

// migrateSubscriptionStatus backfills profiles created before the billing
// integration. Rows with no status become "free"; rows cancelled by the old
// boolean column keep their zeroed counters. Safe to run multiple times.
func migrateSubscriptionStatus(db *gorm.DB) error {
	result := db.Exec(`
		UPDATE user_profiles
		SET subscription_status = 'free'
		WHERE subscription_status IS NULL OR subscription_status = ''
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill subscription status: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Backfilled subscription status on %d profiles", result.RowsAffected)
	}

	// Negative counters can exist from a pre-clamp debit bug; pin them to 0.
	for _, col := range []string{
		"analysis_credits", "comparison_credits", "spy_credits",
		"generation_credits", "improvement_credits",
	} {
		db.Exec(`UPDATE user_profiles SET ` + col + ` = 0 WHERE ` + col + ` < 0`)
	}

	return nil
}
