package services

import (
	"fmt"
	"strings"
)

// ImagePart is one inline image block sent to the model.
type ImagePart struct {
	MIMEType string
	Data     []byte
}

// Prompt is a model-ready instruction set: a system instruction that pins the
// persona and the exact output JSON contract, plus user content (text and up
// to two image blocks).
type Prompt struct {
	System string
	Text   string
	Images []ImagePart
}

// AnalyzeContext carries the typed request fields for a single-image analysis.
type AnalyzeContext struct {
	Platform       string
	Niche          string
	TargetAudience string
	ProductOffer   string
}

// CompareContext carries the typed request fields for a two-image comparison.
type CompareContext struct {
	Platform string
	Niche    string
}

// SpyContext carries the typed request fields for a competitor breakdown.
type SpyContext struct {
	Platform    string
	Niche       string
	UserProduct string
}

// GenerateContext carries the typed request fields for URL-based ad copy.
type GenerateContext struct {
	Product   *ProductInfo
	Platforms []string
	Tone      string
}

// ImproveContext conditions the improvement pass on a prior analysis.
type ImproveContext struct {
	Platform     string
	Niche        string
	OverallScore int
	Weaknesses   []string
}

const analyzeSystemPrompt = `You are a senior paid-social creative strategist. You score ad creatives and give actionable feedback.

Analyze the attached ad image for the given platform and niche.

Respond with ONLY a JSON object in exactly this shape:
{
  "overall_score": <number 1-100>,
  "scores": {
    "hook": <number 1-100>,
    "visual_clarity": <number 1-100>,
    "text_readability": <number 1-100>,
    "cta_strength": <number 1-100>,
    "audience_fit": <number 1-100>
  },
  "hook_analysis": {
    "type": "<one of: question, statistic, bold_claim, pain_point, curiosity>",
    "effectiveness": <number 1-100>
  },
  "strengths": ["<string>", ...],
  "weaknesses": ["<string>", ...],
  "recommendations": [
    {"priority": "<one of: high, medium, low>", "suggestion": "<string>"},
    ...
  ],
  "verdict": "<one-sentence summary>"
}

Do not include any text outside the JSON object.`

const compareSystemPrompt = `You are a senior paid-social creative strategist. You compare two ad creatives for the same campaign and pick a winner.

Image 1 is ad A, image 2 is ad B.

Respond with ONLY a JSON object in exactly this shape:
{
  "winner": "<one of: a, b>",
  "score_a": <number 1-100>,
  "score_b": <number 1-100>,
  "reasons": ["<string>", ...],
  "recommendations": [
    {"priority": "<one of: high, medium, low>", "suggestion": "<string>"},
    ...
  ]
}

Do not include any text outside the JSON object.`

const spySystemPrompt = `You are a competitive-intelligence analyst for paid social. You reverse-engineer competitor ad creatives.

Break down the attached competitor ad: what strategy it runs, who it targets, and how the user can adapt it for their own product.

Respond with ONLY a JSON object in exactly this shape:
{
  "strategy_breakdown": "<string>",
  "hook": {
    "type": "<one of: question, statistic, bold_claim, pain_point, curiosity>",
    "effectiveness": <number 1-100>
  },
  "target_audience": "<string>",
  "estimated_budget_level": "<one of: low, medium, high>",
  "how_to_adapt": ["<string>", ...]
}

Do not include any text outside the JSON object.`

const generateSystemPrompt = `You are a direct-response copywriter. You write platform-native ad copy from product information.

Write one ad variant per requested platform, in the requested tone.

Respond with ONLY a JSON object in exactly this shape:
{
  "variants": [
    {
      "platform": "<string>",
      "headline": "<string, max 60 chars>",
      "primary_text": "<string>",
      "cta": "<string>"
    },
    ...
  ]
}

Do not include any text outside the JSON object.`

const improveSystemPrompt = `You are a senior paid-social creative strategist. A prior analysis of this ad found specific weaknesses; your job is to prescribe concrete fixes.

Respond with ONLY a JSON object in exactly this shape:
{
  "improved_score_estimate": <number 1-100>,
  "changes": [
    {"priority": "<one of: high, medium, low>", "suggestion": "<string>"},
    ...
  ],
  "rewritten_copy": "<string>"
}

Do not include any text outside the JSON object.`

// BuildAnalyzePrompt maps an analysis request into a model-ready prompt.
func BuildAnalyzePrompt(reqCtx AnalyzeContext, image ImagePart) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nNiche: %s\n", reqCtx.Platform, reqCtx.Niche)
	if reqCtx.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", reqCtx.TargetAudience)
	}
	if reqCtx.ProductOffer != "" {
		fmt.Fprintf(&b, "Product/offer: %s\n", reqCtx.ProductOffer)
	}
	b.WriteString("Analyze the attached ad creative.")

	return Prompt{
		System: analyzeSystemPrompt,
		Text:   b.String(),
		Images: []ImagePart{image},
	}
}

// BuildComparePrompt maps a comparison request into a model-ready prompt with
// both images attached, A first.
func BuildComparePrompt(reqCtx CompareContext, imageA, imageB ImagePart) Prompt {
	text := fmt.Sprintf(
		"Platform: %s\nNiche: %s\nCompare ad A (first image) against ad B (second image) and pick the likely winner.",
		reqCtx.Platform, reqCtx.Niche,
	)

	return Prompt{
		System: compareSystemPrompt,
		Text:   text,
		Images: []ImagePart{imageA, imageB},
	}
}

// BuildSpyPrompt maps a competitor-spy request into a model-ready prompt.
func BuildSpyPrompt(reqCtx SpyContext, image ImagePart) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nNiche: %s\n", reqCtx.Platform, reqCtx.Niche)
	if reqCtx.UserProduct != "" {
		fmt.Fprintf(&b, "The user sells: %s\nTailor the adaptation advice to that product.\n", reqCtx.UserProduct)
	}
	b.WriteString("Reverse-engineer the attached competitor ad.")

	return Prompt{
		System: spySystemPrompt,
		Text:   b.String(),
		Images: []ImagePart{image},
	}
}

// BuildGeneratePrompt maps scraped product info plus the requested platforms
// and tone into a model-ready prompt. Scraped fields arrive already bounded
// (description 1500 chars, reviews 400) to control prompt size.
func BuildGeneratePrompt(reqCtx GenerateContext) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", reqCtx.Product.Name)
	if reqCtx.Product.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", reqCtx.Product.Description)
	}
	if reqCtx.Product.Reviews != "" {
		fmt.Fprintf(&b, "Customer review snippets: %s\n", reqCtx.Product.Reviews)
	}
	if !reqCtx.Product.FetchSuccess {
		b.WriteString("Note: the product page could not be fetched; only the product name is known. Write generic but plausible copy.\n")
	}
	fmt.Fprintf(&b, "Platforms: %s\nTone: %s\n", strings.Join(reqCtx.Platforms, ", "), reqCtx.Tone)
	b.WriteString("Write one ad variant per platform.")

	return Prompt{
		System: generateSystemPrompt,
		Text:   b.String(),
	}
}

// BuildImprovePrompt conditions the improvement pass on the prior analysis's
// weaknesses and score. This is the one place where one pipeline's output
// feeds another's input.
func BuildImprovePrompt(reqCtx ImproveContext, image ImagePart) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nNiche: %s\n", reqCtx.Platform, reqCtx.Niche)
	fmt.Fprintf(&b, "The prior analysis scored this ad %d/100 and flagged these weaknesses:\n", reqCtx.OverallScore)
	for _, w := range reqCtx.Weaknesses {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString("Prescribe concrete changes that address each weakness.")

	return Prompt{
		System: improveSystemPrompt,
		Text:   b.String(),
		Images: []ImagePart{image},
	}
}
