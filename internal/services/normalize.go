package services

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	scoreMin     = 1
	scoreMax     = 100
	scoreDefault = 50
)

// ClampScore forces a raw model score into [1,100]. Absent (nil) and
// non-numeric values become the default 50: the model's output is never
// trusted to respect its own schema's numeric bounds.
func ClampScore(raw any) int {
	f, ok := toFloat(raw)
	if !ok {
		return scoreDefault
	}
	if f < scoreMin {
		return scoreMin
	}
	if f > scoreMax {
		return scoreMax
	}
	return int(math.Round(f))
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Platform and niche values are used as storage keys with a constrained
// domain, so free-form user/model input is mapped through allowlists.
// Unknown values collapse to "other" rather than failing the request.

var platformSynonyms = map[string]string{
	"facebook":  "facebook",
	"fb":        "facebook",
	"meta":      "facebook",
	"instagram": "instagram",
	"ig":        "instagram",
	"tiktok":    "tiktok",
	"google":    "google",
	"youtube":   "youtube",
	"linkedin":  "linkedin",
	"pinterest": "pinterest",
	"x":         "twitter",
	"twitter":   "twitter",
}

var nicheSynonyms = map[string]string{
	"fashion":         "fashion",
	"apparel":         "fashion",
	"beauty":          "beauty",
	"cosmetics":       "beauty",
	"skincare":        "beauty",
	"fitness":         "fitness",
	"health":          "fitness",
	"wellness":        "fitness",
	"tech":            "tech",
	"tech_gadgets":    "tech",
	"electronics":     "tech",
	"software":        "saas",
	"saas":            "saas",
	"home":            "home",
	"home_garden":     "home",
	"furniture":       "home",
	"food":            "food",
	"food_beverage":   "food",
	"restaurants":     "food",
	"finance":         "finance",
	"fintech":         "finance",
	"education":       "education",
	"courses":         "education",
	"travel":          "travel",
	"pets":            "pets",
	"jewelry":         "jewelry",
	"accessories":     "jewelry",
	"gaming":          "gaming",
	"toys":            "gaming",
	"automotive":      "automotive",
	"cars":            "automotive",
	"real_estate":     "real_estate",
	"property":        "real_estate",
	"entertainment":   "entertainment",
	"sports_outdoors": "sports",
	"sports":          "sports",
}

// NormalizePlatform maps a free-form platform name onto the storage allowlist.
func NormalizePlatform(raw string) string {
	key := normalizeKey(raw)
	if mapped, ok := platformSynonyms[key]; ok {
		return mapped
	}
	return "other"
}

// NormalizeNiche maps a free-form niche name onto the storage allowlist.
func NormalizeNiche(raw string) string {
	key := normalizeKey(raw)
	if mapped, ok := nicheSynonyms[key]; ok {
		return mapped
	}
	return "other"
}

func normalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "&", "")
	key = strings.ReplaceAll(key, "__", "_")
	return key
}

// Recommendation priorities and hook types are enumerated by the prompt
// contract; anything off-list is pinned to a safe member.

func normalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return "high"
	case "low":
		return "low"
	default:
		return "medium"
	}
}

func normalizeHookType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "question", "statistic", "bold_claim", "pain_point", "curiosity":
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return "curiosity"
	}
}

func normalizeBudgetLevel(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return "low"
	case "high":
		return "high"
	default:
		return "medium"
	}
}

// NormalizeAnalysis clamps every score and pins enumerated fields in place.
func NormalizeAnalysis(r *AnalysisResult) {
	r.OverallScore = ClampScore(r.OverallScore)
	for k, v := range r.Scores {
		r.Scores[k] = ClampScore(v)
	}
	r.HookAnalysis.Type = normalizeHookType(r.HookAnalysis.Type)
	r.HookAnalysis.Effectiveness = ClampScore(r.HookAnalysis.Effectiveness)
	for i := range r.Recommendations {
		r.Recommendations[i].Priority = normalizePriority(r.Recommendations[i].Priority)
	}
}

// NormalizeComparison clamps both scores and pins priorities.
func NormalizeComparison(r *ComparisonResult) {
	r.Winner = strings.ToLower(strings.TrimSpace(r.Winner))
	r.ScoreA = ClampScore(r.ScoreA)
	r.ScoreB = ClampScore(r.ScoreB)
	for i := range r.Recommendations {
		r.Recommendations[i].Priority = normalizePriority(r.Recommendations[i].Priority)
	}
}

// NormalizeSpy pins the hook type and budget level.
func NormalizeSpy(r *SpyResult) {
	r.Hook.Type = normalizeHookType(r.Hook.Type)
	r.Hook.Effectiveness = ClampScore(r.Hook.Effectiveness)
	r.EstimatedBudgetLevel = normalizeBudgetLevel(r.EstimatedBudgetLevel)
}

// NormalizeImprovement clamps the estimate and pins priorities.
func NormalizeImprovement(r *ImprovementResult) {
	r.ImprovedScoreEstimate = ClampScore(r.ImprovedScoreEstimate)
	for i := range r.Changes {
		r.Changes[i].Priority = normalizePriority(r.Changes[i].Priority)
	}
}
