package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

const validAnalysisJSON = `{
	"overall_score": 72,
	"scores": {"visual_impact": 80, "clarity": 65},
	"hook_analysis": {"type": "bold_claim", "effectiveness": 70},
	"strengths": ["strong contrast"],
	"weaknesses": ["cta below the fold"],
	"recommendations": [{"priority": "high", "suggestion": "move the cta up"}],
	"verdict": "solid creative with a buried cta"
}`

const validImprovementJSON = `{
	"improved_score_estimate": 85,
	"changes": [{"priority": "high", "suggestion": "move the cta up"}],
	"rewritten_copy": "Stop scrolling. Your back called."
}`

const validGenerationJSON = `{
	"variants": [
		{"platform": "facebook", "headline": "Ergo Desk V2", "primary_text": "Your back deserves better.", "cta": "Shop Now"}
	]
}`

// testPipeline wires a pipeline over an in-memory database, a temp-dir asset
// store, and a scripted model invoker.
func testPipeline(t *testing.T, invoker ModelInvoker) (*Pipeline, *AssetStore) {
	t.Helper()
	db := openTestDB(t)
	assets := testAssetStore(t)
	return NewPipeline(db, NewEntitlementService(db), assets, NewProductScraper(), invoker), assets
}

func seedImage(t *testing.T, assets *AssetStore, userID string) string {
	t.Helper()
	path, err := assets.Save(userID, pngBytes, ".png")
	if err != nil {
		t.Fatalf("seed image: %v", err)
	}
	return DisplayURL("https://api.example.com", path)
}

func TestAnalyzeHappyPath(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{validAnalysisJSON}, errs: []error{nil}}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, AnalysisCredits: 2,
	})
	imageURL := seedImage(t, assets, "u1")

	outcome, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL,
		Platform: "FB",
		Niche:    "tech gadgets",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if outcome.ID == "" {
		t.Error("outcome missing record id")
	}
	if outcome.CreditsRemaining != 1 {
		t.Errorf("CreditsRemaining = %d, want 1", outcome.CreditsRemaining)
	}

	var record models.AnalysisRecord
	if err := p.db.First(&record, "id = ?", outcome.ID).Error; err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if record.Platform != "facebook" {
		t.Errorf("stored platform = %q, want normalized facebook", record.Platform)
	}
	if record.Niche != "tech" {
		t.Errorf("stored niche = %q, want normalized tech", record.Niche)
	}

	var stored AnalysisResult
	if err := json.Unmarshal(record.Result, &stored); err != nil {
		t.Fatalf("stored result unreadable: %v", err)
	}
	if ClampScore(stored.OverallScore) != 72 {
		t.Errorf("stored overall score = %v, want 72", stored.OverallScore)
	}
}

func TestAnalyzeInsufficientCreditsLeavesNoTrace(t *testing.T) {
	invoker := &scriptedInvoker{}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, AnalysisCredits: 0,
	})
	imageURL := seedImage(t, assets, "u1")

	_, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}

	if invoker.calls != 0 {
		t.Error("model must not be called when credits are exhausted")
	}
	var count int64
	p.db.Model(&models.AnalysisRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("records stored = %d, want 0", count)
	}
}

func TestAnalyzeModelFailureDoesNotDebit(t *testing.T) {
	invoker := &scriptedInvoker{
		responses: []string{"garbage", "still garbage"},
		errs:      []error{nil, nil},
	}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, AnalysisCredits: 2,
	})
	imageURL := seedImage(t, assets, "u1")

	_, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if !errors.Is(err, ErrUpstreamGeneration) {
		t.Fatalf("err = %v, want ErrUpstreamGeneration", err)
	}

	var stored models.UserProfile
	p.db.First(&stored, "id = ?", "u1")
	if stored.AnalysisCredits != 2 {
		t.Errorf("credits = %d, want 2 (no debit on failure)", stored.AnalysisCredits)
	}
}

func TestAnalyzeSubscriberKeepsCounter(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{validAnalysisJSON}, errs: []error{nil}}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionActive, AnalysisCredits: models.UnlimitedCredits,
	})
	imageURL := seedImage(t, assets, "u1")

	outcome, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !outcome.Subscribed {
		t.Error("outcome should report subscribed")
	}

	var stored models.UserProfile
	p.db.First(&stored, "id = ?", "u1")
	if stored.AnalysisCredits != models.UnlimitedCredits {
		t.Errorf("credits = %d, subscriber counter must not move", stored.AnalysisCredits)
	}
}

func TestAnalyzeMissingAsset(t *testing.T) {
	invoker := &scriptedInvoker{}
	p, _ := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, AnalysisCredits: 2,
	})

	_, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: "https://api.example.com/ad-assets/u1/missing.png",
		Platform: "facebook", Niche: "tech",
	})
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if invoker.calls != 0 {
		t.Error("model must not be called for a missing asset")
	}
}

func TestCompareStoresBothPaths(t *testing.T) {
	comparisonJSON := `{"winner":"b","score_a":60,"score_b":75,"reasons":["cleaner layout"],"recommendations":[]}`
	invoker := &scriptedInvoker{responses: []string{comparisonJSON}, errs: []error{nil}}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, ComparisonCredits: 1,
	})
	urlA := seedImage(t, assets, "u1")
	urlB := seedImage(t, assets, "u1")

	outcome, err := p.Compare(context.Background(), profile, CompareInput{
		ImageAURL: urlA, ImageBURL: urlB, Platform: "instagram", Niche: "beauty",
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	var record models.ComparisonRecord
	if err := p.db.First(&record, "id = ?", outcome.ID).Error; err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if record.ImageAPath == "" || record.ImageBPath == "" || record.ImageAPath == record.ImageBPath {
		t.Errorf("image paths = %q, %q; want two distinct paths", record.ImageAPath, record.ImageBPath)
	}
	if outcome.CreditsRemaining != 0 {
		t.Errorf("CreditsRemaining = %d, want 0", outcome.CreditsRemaining)
	}
}

func TestGenerateFromURLScrapeFallback(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{validGenerationJSON}, errs: []error{nil}}
	p, _ := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, GenerationCredits: 1,
	})

	// .invalid never resolves, so the scrape fails and the pipeline must
	// degrade to URL-derived product info rather than abort.
	outcome, err := p.GenerateFromURL(context.Background(), profile, GenerateInput{
		URL:       "https://shop.invalid/products/ergo-desk-v2",
		Platforms: []string{"facebook"},
		Tone:      "playful",
	})
	if err != nil {
		t.Fatalf("GenerateFromURL: %v", err)
	}

	var record models.GenerationRecord
	if err := p.db.First(&record, "id = ?", outcome.ID).Error; err != nil {
		t.Fatalf("record not stored: %v", err)
	}

	var doc struct {
		ProductInfo ProductInfo `json:"product_info"`
		Variants    []AdVariant `json:"variants"`
	}
	if err := json.Unmarshal(record.Result, &doc); err != nil {
		t.Fatalf("stored result unreadable: %v", err)
	}
	if doc.ProductInfo.FetchSuccess {
		t.Error("fetch_success = true, want false after scrape failure")
	}
	if doc.ProductInfo.Name != "ergo desk v2" {
		t.Errorf("fallback name = %q, want url-derived", doc.ProductInfo.Name)
	}
	if len(doc.Variants) != 1 {
		t.Errorf("variants = %d, want 1", len(doc.Variants))
	}
}

func TestGenerateFromURLRejectsInternalTargets(t *testing.T) {
	invoker := &scriptedInvoker{}
	p, _ := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree, GenerationCredits: 1,
	})

	_, err := p.GenerateFromURL(context.Background(), profile, GenerateInput{
		URL:       "http://169.254.169.254/latest/meta-data",
		Platforms: []string{"facebook"},
	})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v, want ErrInvalidURL", err)
	}
	if invoker.calls != 0 {
		t.Error("model must not be called for a rejected URL")
	}
}

func TestImproveAttachesToRecord(t *testing.T) {
	invoker := &scriptedInvoker{
		responses: []string{validAnalysisJSON, validImprovementJSON},
		errs:      []error{nil, nil},
	}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree,
		AnalysisCredits: 1, ImprovementCredits: 1,
	})
	imageURL := seedImage(t, assets, "u1")

	analyzed, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	outcome, err := p.Improve(context.Background(), profile, analyzed.ID)
	if err != nil {
		t.Fatalf("Improve: %v", err)
	}
	if outcome.ID != analyzed.ID {
		t.Errorf("Improve outcome id = %q, want the analysis id %q", outcome.ID, analyzed.ID)
	}

	var record models.AnalysisRecord
	p.db.First(&record, "id = ?", analyzed.ID)
	if len(record.ImprovementResult) == 0 {
		t.Fatal("improvement_result not attached")
	}

	var improvement ImprovementResult
	if err := json.Unmarshal(record.ImprovementResult, &improvement); err != nil {
		t.Fatalf("stored improvement unreadable: %v", err)
	}
	if improvement.RewrittenCopy == "" {
		t.Error("rewritten copy missing")
	}
}

func TestImproveIsOncePerAnalysis(t *testing.T) {
	invoker := &scriptedInvoker{
		responses: []string{validAnalysisJSON, validImprovementJSON},
		errs:      []error{nil, nil},
	}
	p, assets := testPipeline(t, invoker)

	profile := seedProfile(t, p.db, &models.UserProfile{
		ID: "u1", SubscriptionStatus: models.SubscriptionFree,
		AnalysisCredits: 1, ImprovementCredits: 2,
	})
	imageURL := seedImage(t, assets, "u1")

	analyzed, err := p.Analyze(context.Background(), profile, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := p.Improve(context.Background(), profile, analyzed.ID); err != nil {
		t.Fatalf("first Improve: %v", err)
	}

	var before models.AnalysisRecord
	p.db.First(&before, "id = ?", analyzed.ID)

	// A repeat must be rejected without touching the stored improvement,
	// without another model call, and without another debit.
	_, err = p.Improve(context.Background(), profile, analyzed.ID)
	if !errors.Is(err, ErrAlreadyImproved) {
		t.Fatalf("second Improve err = %v, want ErrAlreadyImproved", err)
	}
	if invoker.calls != 2 {
		t.Errorf("model calls = %d, want 2 (analyze + one improve)", invoker.calls)
	}

	var after models.AnalysisRecord
	p.db.First(&after, "id = ?", analyzed.ID)
	if string(after.ImprovementResult) != string(before.ImprovementResult) {
		t.Error("stored improvement changed on rejected repeat")
	}

	var stored models.UserProfile
	p.db.First(&stored, "id = ?", "u1")
	if stored.ImprovementCredits != 1 {
		t.Errorf("improvement credits = %d, want 1 (single debit)", stored.ImprovementCredits)
	}
}

func TestImproveUnknownOrForeignRecord(t *testing.T) {
	invoker := &scriptedInvoker{responses: []string{validAnalysisJSON}, errs: []error{nil}}
	p, assets := testPipeline(t, invoker)

	owner := seedProfile(t, p.db, &models.UserProfile{
		ID: "owner", SubscriptionStatus: models.SubscriptionFree, AnalysisCredits: 1,
	})
	other := seedProfile(t, p.db, &models.UserProfile{
		ID: "other", SubscriptionStatus: models.SubscriptionFree, ImprovementCredits: 1,
	})
	imageURL := seedImage(t, assets, "owner")

	analyzed, err := p.Analyze(context.Background(), owner, AnalyzeInput{
		ImageURL: imageURL, Platform: "facebook", Niche: "tech",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, err := p.Improve(context.Background(), other, analyzed.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("foreign record err = %v, want ErrRecordNotFound", err)
	}
	if _, err := p.Improve(context.Background(), owner, "no-such-id"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("missing record err = %v, want ErrRecordNotFound", err)
	}
}
