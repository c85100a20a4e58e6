package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Typed result contracts, one per operation. Score-bearing fields are
// deliberately loose (any): the model's raw numbers are clamped by the
// normalization step, which also handles absent or non-numeric values, so a
// bad score must not fail the decode.

// Recommendation is one prioritized suggestion.
type Recommendation struct {
	Priority   string `json:"priority"`
	Suggestion string `json:"suggestion"`
}

// HookAnalysis classifies an ad's hook.
type HookAnalysis struct {
	Type          string `json:"type"`
	Effectiveness any    `json:"effectiveness"`
}

// AnalysisResult is the analyze operation's output contract.
type AnalysisResult struct {
	OverallScore    any              `json:"overall_score"`
	Scores          map[string]any   `json:"scores"`
	HookAnalysis    HookAnalysis     `json:"hook_analysis"`
	Strengths       []string         `json:"strengths"`
	Weaknesses      []string         `json:"weaknesses"`
	Recommendations []Recommendation `json:"recommendations"`
	Verdict         string           `json:"verdict"`
}

// ComparisonResult is the compare operation's output contract.
type ComparisonResult struct {
	Winner          string           `json:"winner"`
	ScoreA          any              `json:"score_a"`
	ScoreB          any              `json:"score_b"`
	Reasons         []string         `json:"reasons"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SpyResult is the competitor-spy operation's output contract.
type SpyResult struct {
	StrategyBreakdown    string       `json:"strategy_breakdown"`
	Hook                 HookAnalysis `json:"hook"`
	TargetAudience       string       `json:"target_audience"`
	EstimatedBudgetLevel string       `json:"estimated_budget_level"`
	HowToAdapt           []string     `json:"how_to_adapt"`
}

// AdVariant is one generated ad for one platform.
type AdVariant struct {
	Platform    string `json:"platform"`
	Headline    string `json:"headline"`
	PrimaryText string `json:"primary_text"`
	CTA         string `json:"cta"`
}

// GenerationResult is the generate-from-url operation's output contract.
type GenerationResult struct {
	Variants []AdVariant `json:"variants"`
}

// ImprovementResult is the improve operation's output contract.
type ImprovementResult struct {
	ImprovedScoreEstimate any              `json:"improved_score_estimate"`
	Changes               []Recommendation `json:"changes"`
	RewrittenCopy         string           `json:"rewritten_copy"`
}

// Models love to wrap JSON in Markdown fences despite being told not to.
// Matches ``` or ```json (case-insensitive) around the whole payload.
var codeFenceRe = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeFences removes an optional leading/trailing Markdown code fence.
// Text without fences passes through unchanged.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// ParseModelJSON strips fences and decodes the text into out. Both a JSON
// syntax failure and a shape failure report ErrMalformedOutput, so either
// triggers the caller's single retry.
func ParseModelJSON(text string, out interface{}) error {
	cleaned := StripCodeFences(text)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	if err := decoder.Decode(out); err != nil {
		debugLog("Model output parse error: %v, text: %s", err, truncateText(cleaned, 200))
		return fmt.Errorf("%v: %w", err, ErrMalformedOutput)
	}

	if v, ok := out.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			debugLog("Model output shape error: %v", err)
			return fmt.Errorf("%v: %w", err, ErrMalformedOutput)
		}
	}

	return nil
}

// Minimal shape checks: enough to reject a syntactically-valid but wrong
// document without re-validating everything the clamp step already repairs.

func (r *AnalysisResult) validate() error {
	if r.Recommendations == nil && r.Weaknesses == nil && r.Strengths == nil {
		return fmt.Errorf("no analysis fields present")
	}
	return nil
}

func (r *ComparisonResult) validate() error {
	if r.Winner != "a" && r.Winner != "b" {
		return fmt.Errorf("winner must be \"a\" or \"b\", got %q", r.Winner)
	}
	return nil
}

func (r *SpyResult) validate() error {
	if r.StrategyBreakdown == "" {
		return fmt.Errorf("missing strategy_breakdown")
	}
	return nil
}

func (r *GenerationResult) validate() error {
	if len(r.Variants) == 0 {
		return fmt.Errorf("no variants generated")
	}
	return nil
}

func (r *ImprovementResult) validate() error {
	if len(r.Changes) == 0 {
		return fmt.Errorf("no changes suggested")
	}
	return nil
}

// truncateText truncates text to maxLen runes with ellipsis.
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
