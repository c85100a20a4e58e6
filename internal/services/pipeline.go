package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

// Pipeline runs the credit-gated model orchestration for every operation:
// entitlement check, asset fetch, prompt build, model call with one retry,
// normalization, persistence, then the debit. Rate limiting sits in front of
// it at the handler layer.
type Pipeline struct {
	db           *gorm.DB
	entitlements *EntitlementService
	assets       *AssetStore
	scraper      *ProductScraper
	invoker      ModelInvoker
}

func NewPipeline(db *gorm.DB, entitlements *EntitlementService, assets *AssetStore, scraper *ProductScraper, invoker ModelInvoker) *Pipeline {
	return &Pipeline{
		db:           db,
		entitlements: entitlements,
		assets:       assets,
		scraper:      scraper,
		invoker:      invoker,
	}
}

// Outcome is what a successful pipeline run hands back to the handler.
type Outcome struct {
	ID               string
	CreditsRemaining int
	Subscribed       bool
	Result           interface{}
}

type AnalyzeInput struct {
	ImageURL       string
	Platform       string
	Niche          string
	TargetAudience string
	ProductOffer   string
}

type CompareInput struct {
	ImageAURL string
	ImageBURL string
	Platform  string
	Niche     string
}

type SpyInput struct {
	ImageURL    string
	Platform    string
	Niche       string
	UserProduct string
}

type GenerateInput struct {
	URL       string
	Platforms []string
	Tone      string
}

// Analyze runs the single-image analysis pipeline.
func (p *Pipeline) Analyze(ctx context.Context, profile *models.UserProfile, in AnalyzeInput) (out *Outcome, err error) {
	defer p.observe("analyze", &err)

	if !Authorize(profile, models.QuotaAnalysis) {
		metrics.CreditDeniedTotal.WithLabelValues("analyze").Inc()
		return nil, ErrInsufficientCredits
	}

	data, mime, path, err := p.assets.FetchDisplayURL(in.ImageURL)
	if err != nil {
		return nil, err
	}

	prompt := BuildAnalyzePrompt(AnalyzeContext{
		Platform:       in.Platform,
		Niche:          in.Niche,
		TargetAudience: in.TargetAudience,
		ProductOffer:   in.ProductOffer,
	}, ImagePart{MIMEType: mime, Data: data})

	var result AnalysisResult
	if err := GenerateWithRetry(ctx, p.invoker, prompt, &result); err != nil {
		return nil, err
	}
	NormalizeAnalysis(&result)

	record := models.AnalysisRecord{
		ID:             uuid.New().String(),
		UserID:         profile.ID,
		ImagePath:      path,
		Platform:       NormalizePlatform(in.Platform),
		Niche:          NormalizeNiche(in.Niche),
		TargetAudience: in.TargetAudience,
		ProductOffer:   in.ProductOffer,
		Result:         mustJSON(result),
		CreatedAt:      time.Now(),
	}
	if err := p.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert analysis: %v: %w", err, ErrPersistence)
	}

	remaining := p.entitlements.Debit(profile, models.QuotaAnalysis)

	return &Outcome{
		ID:               record.ID,
		CreditsRemaining: remaining,
		Subscribed:       profile.IsSubscribed(),
		Result:           &result,
	}, nil
}

// Compare runs the two-image comparison pipeline. The two asset downloads
// are independent, so they run concurrently; the model call waits for both.
func (p *Pipeline) Compare(ctx context.Context, profile *models.UserProfile, in CompareInput) (out *Outcome, err error) {
	defer p.observe("compare", &err)

	if !Authorize(profile, models.QuotaComparison) {
		metrics.CreditDeniedTotal.WithLabelValues("compare").Inc()
		return nil, ErrInsufficientCredits
	}

	type fetched struct {
		data []byte
		mime string
		path string
		err  error
	}
	var a, b fetched
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.data, a.mime, a.path, a.err = p.assets.FetchDisplayURL(in.ImageAURL)
	}()
	go func() {
		defer wg.Done()
		b.data, b.mime, b.path, b.err = p.assets.FetchDisplayURL(in.ImageBURL)
	}()
	wg.Wait()

	if a.err != nil {
		return nil, a.err
	}
	if b.err != nil {
		return nil, b.err
	}

	prompt := BuildComparePrompt(
		CompareContext{Platform: in.Platform, Niche: in.Niche},
		ImagePart{MIMEType: a.mime, Data: a.data},
		ImagePart{MIMEType: b.mime, Data: b.data},
	)

	var result ComparisonResult
	if err := GenerateWithRetry(ctx, p.invoker, prompt, &result); err != nil {
		return nil, err
	}
	NormalizeComparison(&result)

	record := models.ComparisonRecord{
		ID:         uuid.New().String(),
		UserID:     profile.ID,
		ImageAPath: a.path,
		ImageBPath: b.path,
		Platform:   NormalizePlatform(in.Platform),
		Niche:      NormalizeNiche(in.Niche),
		Result:     mustJSON(result),
		CreatedAt:  time.Now(),
	}
	if err := p.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert comparison: %v: %w", err, ErrPersistence)
	}

	remaining := p.entitlements.Debit(profile, models.QuotaComparison)

	return &Outcome{
		ID:               record.ID,
		CreditsRemaining: remaining,
		Subscribed:       profile.IsSubscribed(),
		Result:           &result,
	}, nil
}

// Spy runs the competitor-ad breakdown pipeline.
func (p *Pipeline) Spy(ctx context.Context, profile *models.UserProfile, in SpyInput) (out *Outcome, err error) {
	defer p.observe("spy", &err)

	if !Authorize(profile, models.QuotaSpy) {
		metrics.CreditDeniedTotal.WithLabelValues("spy").Inc()
		return nil, ErrInsufficientCredits
	}

	data, mime, path, err := p.assets.FetchDisplayURL(in.ImageURL)
	if err != nil {
		return nil, err
	}

	prompt := BuildSpyPrompt(SpyContext{
		Platform:    in.Platform,
		Niche:       in.Niche,
		UserProduct: in.UserProduct,
	}, ImagePart{MIMEType: mime, Data: data})

	var result SpyResult
	if err := GenerateWithRetry(ctx, p.invoker, prompt, &result); err != nil {
		return nil, err
	}
	NormalizeSpy(&result)

	record := models.SpyRecord{
		ID:          uuid.New().String(),
		UserID:      profile.ID,
		ImagePath:   path,
		Platform:    NormalizePlatform(in.Platform),
		Niche:       NormalizeNiche(in.Niche),
		UserProduct: in.UserProduct,
		Result:      mustJSON(result),
		CreatedAt:   time.Now(),
	}
	if err := p.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert spy: %v: %w", err, ErrPersistence)
	}

	remaining := p.entitlements.Debit(profile, models.QuotaSpy)

	return &Outcome{
		ID:               record.ID,
		CreditsRemaining: remaining,
		Subscribed:       profile.IsSubscribed(),
		Result:           &result,
	}, nil
}

// generationDocument is the stored result shape for generate-from-url: the
// variants plus the product info the copy was written from, including the
// fetch_success flag when scraping degraded.
type generationDocument struct {
	ProductInfo *ProductInfo `json:"product_info"`
	Variants    []AdVariant  `json:"variants"`
}

// GenerateFromURL runs the URL-to-ad-copy pipeline. A scraping failure does
// not abort the operation: it degrades to URL-derived product info and the
// stored record is flagged accordingly.
func (p *Pipeline) GenerateFromURL(ctx context.Context, profile *models.UserProfile, in GenerateInput) (out *Outcome, err error) {
	defer p.observe("generate", &err)

	if err := ValidateScrapeURL(in.URL); err != nil {
		return nil, err
	}

	if !Authorize(profile, models.QuotaGeneration) {
		metrics.CreditDeniedTotal.WithLabelValues("generate").Inc()
		return nil, ErrInsufficientCredits
	}

	product, scrapeErr := p.scraper.Fetch(ctx, in.URL)
	if scrapeErr != nil {
		infoLog("Scrape failed for %s, using URL fallback: %v", in.URL, scrapeErr)
		product = FallbackFromURL(in.URL)
	}

	prompt := BuildGeneratePrompt(GenerateContext{
		Product:   product,
		Platforms: in.Platforms,
		Tone:      in.Tone,
	})

	var result GenerationResult
	if err := GenerateWithRetry(ctx, p.invoker, prompt, &result); err != nil {
		return nil, err
	}

	doc := generationDocument{ProductInfo: product, Variants: result.Variants}

	record := models.GenerationRecord{
		ID:        uuid.New().String(),
		UserID:    profile.ID,
		SourceURL: in.URL,
		Platforms: mustJSON(in.Platforms),
		Tone:      in.Tone,
		Result:    mustJSON(doc),
		CreatedAt: time.Now(),
	}
	if err := p.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert generation: %v: %w", err, ErrPersistence)
	}

	remaining := p.entitlements.Debit(profile, models.QuotaGeneration)

	return &Outcome{
		ID:               record.ID,
		CreditsRemaining: remaining,
		Subscribed:       profile.IsSubscribed(),
		Result:           &doc,
	}, nil
}

// Improve runs the dependent second-stage pass: it loads an existing analysis
// owned by the caller, conditions the prompt on its weaknesses and score, and
// attaches the result to the same record. This is the only post-creation
// record mutation in the system, and it happens at most once per analysis.
func (p *Pipeline) Improve(ctx context.Context, profile *models.UserProfile, analysisID string) (out *Outcome, err error) {
	defer p.observe("improve", &err)

	var record models.AnalysisRecord
	if dbErr := p.db.First(&record, "id = ? AND user_id = ?", analysisID, profile.ID).Error; dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load analysis: %v: %w", dbErr, ErrPersistence)
	}

	if len(record.ImprovementResult) > 0 {
		return nil, ErrAlreadyImproved
	}

	if !Authorize(profile, models.QuotaImprovement) {
		metrics.CreditDeniedTotal.WithLabelValues("improve").Inc()
		return nil, ErrInsufficientCredits
	}

	var prior AnalysisResult
	if jsonErr := json.Unmarshal(record.Result, &prior); jsonErr != nil {
		return nil, fmt.Errorf("stored analysis unreadable: %v: %w", jsonErr, ErrPersistence)
	}

	data, mime, err := p.assets.Fetch(record.ImagePath)
	if err != nil {
		return nil, err
	}

	prompt := BuildImprovePrompt(ImproveContext{
		Platform:     record.Platform,
		Niche:        record.Niche,
		OverallScore: ClampScore(prior.OverallScore),
		Weaknesses:   prior.Weaknesses,
	}, ImagePart{MIMEType: mime, Data: data})

	var result ImprovementResult
	if err := GenerateWithRetry(ctx, p.invoker, prompt, &result); err != nil {
		return nil, err
	}
	NormalizeImprovement(&result)

	err = p.db.Model(&models.AnalysisRecord{}).
		Where("id = ?", record.ID).
		UpdateColumn("improvement_result", mustJSON(result)).Error
	if err != nil {
		return nil, fmt.Errorf("attach improvement: %v: %w", err, ErrPersistence)
	}

	remaining := p.entitlements.Debit(profile, models.QuotaImprovement)

	return &Outcome{
		ID:               record.ID,
		CreditsRemaining: remaining,
		Subscribed:       profile.IsSubscribed(),
		Result:           &result,
	}, nil
}

// observe records the per-operation outcome counter.
func (p *Pipeline) observe(operation string, errp *error) {
	outcome := "ok"
	switch {
	case *errp == nil:
	case errors.Is(*errp, ErrInsufficientCredits):
		outcome = "credit_denied"
	case errors.Is(*errp, ErrAssetNotFound), errors.Is(*errp, ErrInvalidURL), errors.Is(*errp, ErrAlreadyImproved):
		outcome = "input_error"
	case errors.Is(*errp, ErrUpstreamGeneration):
		outcome = "upstream_error"
	case errors.Is(*errp, ErrPersistence):
		outcome = "persist_error"
	case errors.Is(*errp, context.DeadlineExceeded), errors.Is(*errp, context.Canceled):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	metrics.PipelineRunsTotal.WithLabelValues(operation, outcome).Inc()
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable type, which would be a bug.
		infoLog("marshal failure: %v", err)
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}
