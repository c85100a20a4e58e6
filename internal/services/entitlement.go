package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

// EntitlementService owns the user profile rows: the authorize predicate, the
// post-success debit, and the billing webhook state flips.
type EntitlementService struct {
	db *gorm.DB
}

func NewEntitlementService(db *gorm.DB) *EntitlementService {
	return &EntitlementService{db: db}
}

// Authorize reports whether a profile may run an operation billed against the
// given quota field. An active subscription bypasses every counter. This is a
// pure predicate: the debit happens later, only after the whole pipeline
// succeeds. Concurrent requests from one user can both pass this check before
// either debits; that limited over-use is accepted, not compensated.
func Authorize(profile *models.UserProfile, field models.QuotaField) bool {
	if profile.IsSubscribed() {
		return true
	}
	return profile.Credits(field) > 0
}

// Debit decrements a counter by one, clamped at zero. Skipped entirely for
// subscribed users. Best-effort: a failure here is logged, never surfaced,
// because the user's result is already stored.
func (s *EntitlementService) Debit(profile *models.UserProfile, field models.QuotaField) int {
	if profile.IsSubscribed() {
		return profile.Credits(field)
	}

	remaining := profile.Credits(field) - 1
	if remaining < 0 {
		remaining = 0
	}

	err := s.db.Model(&models.UserProfile{}).
		Where("id = ?", profile.ID).
		UpdateColumn(string(field), gorm.Expr("MAX(0, "+string(field)+" - 1)")).Error
	if err != nil {
		infoLog("Debit failed for user %s field %s: %v", profile.ID, field, err)
		return profile.Credits(field)
	}

	profile.SetCredits(field, remaining)
	return remaining
}

// GetByID reloads a profile row.
func (s *EntitlementService) GetByID(userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.First(&profile, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Billing webhook event types, as sent by the external billing provider.
const (
	BillingSubscriptionActivated = "subscription.activated"
	BillingSubscriptionCancelled = "subscription.cancelled"
)

// ApplyBillingEvent flips subscription state from a billing webhook. Upgrade
// sets every counter to the unlimited sentinel; cancellation zeroes them.
// These are the only writers of subscription state besides migration.
func (s *EntitlementService) ApplyBillingEvent(userID, eventType string) error {
	var updates map[string]interface{}

	switch eventType {
	case BillingSubscriptionActivated:
		updates = map[string]interface{}{
			"subscription_status": models.SubscriptionActive,
			"analysis_credits":    models.UnlimitedCredits,
			"comparison_credits":  models.UnlimitedCredits,
			"spy_credits":         models.UnlimitedCredits,
			"generation_credits":  models.UnlimitedCredits,
			"improvement_credits": models.UnlimitedCredits,
		}
	case BillingSubscriptionCancelled:
		updates = map[string]interface{}{
			"subscription_status": models.SubscriptionCancelled,
			"analysis_credits":    0,
			"comparison_credits":  0,
			"spy_credits":         0,
			"generation_credits":  0,
			"improvement_credits": 0,
		}
	default:
		return fmt.Errorf("unknown billing event type %q", eventType)
	}

	result := s.db.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no profile for user %s: %w", userID, ErrRecordNotFound)
	}

	infoLog("Billing event %s applied to user %s", eventType, userID)
	return nil
}
