package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

func TestMigrateSubscriptionStatus(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(&models.UserProfile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// A pre-billing row with an empty status and a negative counter.
	db.Exec(`INSERT INTO user_profiles (id, subscription_status, analysis_credits) VALUES ('legacy', '', -3)`)
	db.Exec(`INSERT INTO user_profiles (id, subscription_status, analysis_credits) VALUES ('current', 'active', 10)`)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	var legacy, current models.UserProfile
	db.First(&legacy, "id = ?", "legacy")
	db.First(&current, "id = ?", "current")

	if legacy.SubscriptionStatus != models.SubscriptionFree {
		t.Errorf("legacy status = %q, want free", legacy.SubscriptionStatus)
	}
	if legacy.AnalysisCredits != 0 {
		t.Errorf("legacy credits = %d, want 0 (negative pinned)", legacy.AnalysisCredits)
	}
	if current.SubscriptionStatus != models.SubscriptionActive {
		t.Errorf("current status = %q, must be untouched", current.SubscriptionStatus)
	}
	if current.AnalysisCredits != 10 {
		t.Errorf("current credits = %d, must be untouched", current.AnalysisCredits)
	}
}
