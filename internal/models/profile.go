package models

import "time"

// Subscription states. An active subscription bypasses all credit counters.
const (
	SubscriptionFree      = "free"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

// QuotaField names a credit counter column on UserProfile. The values are the
// actual column names so debits can be issued as single-column updates.
type QuotaField string

const (
	QuotaAnalysis    QuotaField = "analysis_credits"
	QuotaComparison  QuotaField = "comparison_credits"
	QuotaSpy         QuotaField = "spy_credits"
	QuotaGeneration  QuotaField = "generation_credits"
	QuotaImprovement QuotaField = "improvement_credits"
)

// UnlimitedCredits is the sentinel written to every counter when a billing
// upgrade lands. Counters are never read for active subscribers, the sentinel
// just keeps the row sane if the subscription later lapses mid-cycle.
const UnlimitedCredits = 999999

// UserProfile is the per-user entitlement row. Authentication itself is
// delegated to an external provider; the session token it issues is stored
// here so the API can resolve a bearer token to a profile.
type UserProfile struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	Email              string    `json:"email" gorm:"index"`
	APIToken           string    `json:"-" gorm:"uniqueIndex;size:128"`
	SubscriptionStatus string    `json:"subscription_status" gorm:"default:'free';size:20"`
	AnalysisCredits    int       `json:"analysis_credits" gorm:"default:0"`
	ComparisonCredits  int       `json:"comparison_credits" gorm:"default:0"`
	SpyCredits         int       `json:"spy_credits" gorm:"default:0"`
	GenerationCredits  int       `json:"generation_credits" gorm:"default:0"`
	ImprovementCredits int       `json:"improvement_credits" gorm:"default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// IsSubscribed reports whether the profile has an active subscription.
func (p *UserProfile) IsSubscribed() bool {
	return p.SubscriptionStatus == SubscriptionActive
}

// Credits returns the counter value for a quota field.
func (p *UserProfile) Credits(field QuotaField) int {
	switch field {
	case QuotaAnalysis:
		return p.AnalysisCredits
	case QuotaComparison:
		return p.ComparisonCredits
	case QuotaSpy:
		return p.SpyCredits
	case QuotaGeneration:
		return p.GenerationCredits
	case QuotaImprovement:
		return p.ImprovementCredits
	}
	return 0
}

// SetCredits writes the counter value for a quota field on the struct.
func (p *UserProfile) SetCredits(field QuotaField, value int) {
	switch field {
	case QuotaAnalysis:
		p.AnalysisCredits = value
	case QuotaComparison:
		p.ComparisonCredits = value
	case QuotaSpy:
		p.SpyCredits = value
	case QuotaGeneration:
		p.GenerationCredits = value
	case QuotaImprovement:
		p.ImprovementCredits = value
	}
}
