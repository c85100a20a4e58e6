package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qufrids/ad-analyzer-sub000/internal/metrics"
	"github.com/qufrids/ad-analyzer-sub000/internal/middleware"
	"github.com/qufrids/ad-analyzer-sub000/internal/models"
	"github.com/qufrids/ad-analyzer-sub000/internal/ratelimit"
	"github.com/qufrids/ad-analyzer-sub000/internal/services"
)

// Per-operation quotas. Scraping-backed generation is the most expensive, so
// it gets the tightest window.
var operationLimits = map[string]ratelimit.Limit{
	"analyze":  {MaxRequests: 5, Window: time.Minute},
	"compare":  {MaxRequests: 3, Window: time.Minute},
	"spy":      {MaxRequests: 3, Window: time.Minute},
	"generate": {MaxRequests: 2, Window: time.Minute},
	"improve":  {MaxRequests: 3, Window: time.Minute},
}

// Client-visible deadlines per operation. Generation scrapes a page before
// the model call, and comparison ships two images, so they get more room.
var operationTimeouts = map[string]time.Duration{
	"analyze":  60 * time.Second,
	"compare":  90 * time.Second,
	"spy":      60 * time.Second,
	"generate": 150 * time.Second,
	"improve":  90 * time.Second,
}

// PipelineHandler exposes the five AI-orchestration operations.
type PipelineHandler struct {
	pipeline *services.Pipeline
	limiter  *ratelimit.Limiter
}

func NewPipelineHandler(pipeline *services.Pipeline, limiter *ratelimit.Limiter) *PipelineHandler {
	return &PipelineHandler{pipeline: pipeline, limiter: limiter}
}

// gate authenticates, rate-limits, and returns the caller's profile. A nil
// profile means the response has already been written.
func (h *PipelineHandler) gate(c *gin.Context, operation string) *models.UserProfile {
	profile, ok := middleware.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "AUTH_REQUIRED"})
		return nil
	}

	result := h.limiter.Check(ratelimit.Key(operation, profile.ID), operationLimits[operation])
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.Allowed {
		metrics.RateLimitDeniedTotal.WithLabelValues(operation).Inc()
		c.Header("Retry-After", strconv.Itoa(result.ResetInSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            "Rate limit exceeded. Try again shortly.",
			"code":             "RATE_LIMITED",
			"reset_in_seconds": result.ResetInSeconds,
		})
		return nil
	}

	return profile
}

// respondError maps a pipeline error onto the HTTP taxonomy. Full detail is
// logged server-side; clients get a short safe string.
func respondError(c *gin.Context, operation string, err error) {
	log.Printf("[API] %s failed: %v", operation, err)

	switch {
	case errors.Is(err, services.ErrInsufficientCredits):
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient credits. Upgrade to continue.", "code": "INSUFFICIENT_CREDITS"})
	case errors.Is(err, services.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is not allowed", "code": "INVALID_URL"})
	case errors.Is(err, services.ErrAssetNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image could not be loaded", "code": "ASSET_NOT_FOUND"})
	case errors.Is(err, services.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found", "code": "NOT_FOUND"})
	case errors.Is(err, services.ErrAlreadyImproved):
		c.JSON(http.StatusConflict, gin.H{"error": "Analysis has already been improved", "code": "ALREADY_IMPROVED"})
	case errors.Is(err, services.ErrUpstreamGeneration):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation failed. Please try again.", "code": "UPSTREAM_FAILED"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Operation timed out", "code": "TIMEOUT"})
	case errors.Is(err, services.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store result", "code": "STORAGE_FAILED"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "code": "INTERNAL"})
	}
}

func setCreditsHeader(c *gin.Context, outcome *services.Outcome) {
	if outcome.Subscribed {
		c.Header("X-Credits-Remaining", "unlimited")
		return
	}
	c.Header("X-Credits-Remaining", strconv.Itoa(outcome.CreditsRemaining))
}

// Analyze scores a single ad image.
// POST /api/analyze
func (h *PipelineHandler) Analyze(c *gin.Context) {
	profile := h.gate(c, "analyze")
	if profile == nil {
		return
	}

	var req struct {
		ImageURL       string `json:"imageUrl" binding:"required"`
		Platform       string `json:"platform" binding:"required"`
		Niche          string `json:"niche" binding:"required"`
		TargetAudience string `json:"targetAudience"`
		ProductOffer   string `json:"productOffer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl, platform and niche are required", "code": "VALIDATION"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), operationTimeouts["analyze"])
	defer cancel()

	outcome, err := h.pipeline.Analyze(ctx, profile, services.AnalyzeInput{
		ImageURL:       req.ImageURL,
		Platform:       req.Platform,
		Niche:          req.Niche,
		TargetAudience: req.TargetAudience,
		ProductOffer:   req.ProductOffer,
	})
	if err != nil {
		respondError(c, "analyze", err)
		return
	}

	setCreditsHeader(c, outcome)
	c.JSON(http.StatusCreated, gin.H{"analysis_id": outcome.ID, "result": outcome.Result})
}

// Compare scores two ad images against each other.
// POST /api/compare
func (h *PipelineHandler) Compare(c *gin.Context) {
	profile := h.gate(c, "compare")
	if profile == nil {
		return
	}

	var req struct {
		ImageAURL string `json:"imageAUrl" binding:"required"`
		ImageBURL string `json:"imageBUrl" binding:"required"`
		Platform  string `json:"platform" binding:"required"`
		Niche     string `json:"niche" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageAUrl, imageBUrl, platform and niche are required", "code": "VALIDATION"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), operationTimeouts["compare"])
	defer cancel()

	outcome, err := h.pipeline.Compare(ctx, profile, services.CompareInput{
		ImageAURL: req.ImageAURL,
		ImageBURL: req.ImageBURL,
		Platform:  req.Platform,
		Niche:     req.Niche,
	})
	if err != nil {
		respondError(c, "compare", err)
		return
	}

	setCreditsHeader(c, outcome)
	c.JSON(http.StatusCreated, gin.H{"comparison_id": outcome.ID, "result": outcome.Result})
}

// Spy reverse-engineers a competitor ad.
// POST /api/spy
func (h *PipelineHandler) Spy(c *gin.Context) {
	profile := h.gate(c, "spy")
	if profile == nil {
		return
	}

	var req struct {
		ImageURL    string `json:"imageUrl" binding:"required"`
		Platform    string `json:"platform" binding:"required"`
		Niche       string `json:"niche" binding:"required"`
		UserProduct string `json:"userProduct"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl, platform and niche are required", "code": "VALIDATION"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), operationTimeouts["spy"])
	defer cancel()

	outcome, err := h.pipeline.Spy(ctx, profile, services.SpyInput{
		ImageURL:    req.ImageURL,
		Platform:    req.Platform,
		Niche:       req.Niche,
		UserProduct: req.UserProduct,
	})
	if err != nil {
		respondError(c, "spy", err)
		return
	}

	setCreditsHeader(c, outcome)
	c.JSON(http.StatusCreated, gin.H{"spy_id": outcome.ID, "result": outcome.Result})
}

// GenerateFromURL writes ad copy from a product page URL.
// POST /api/generate-from-url
func (h *PipelineHandler) GenerateFromURL(c *gin.Context) {
	profile := h.gate(c, "generate")
	if profile == nil {
		return
	}

	var req struct {
		URL       string   `json:"url" binding:"required"`
		Platforms []string `json:"platforms" binding:"required,min=1"`
		Tone      string   `json:"tone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and at least one platform are required", "code": "VALIDATION"})
		return
	}
	if req.Tone == "" {
		req.Tone = "conversational"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), operationTimeouts["generate"])
	defer cancel()

	outcome, err := h.pipeline.GenerateFromURL(ctx, profile, services.GenerateInput{
		URL:       req.URL,
		Platforms: req.Platforms,
		Tone:      req.Tone,
	})
	if err != nil {
		respondError(c, "generate", err)
		return
	}

	setCreditsHeader(c, outcome)
	c.JSON(http.StatusCreated, gin.H{"generation_id": outcome.ID, "result": outcome.Result})
}

// Improve runs the dependent improvement pass over an existing analysis.
// POST /api/improve
func (h *PipelineHandler) Improve(c *gin.Context) {
	profile := h.gate(c, "improve")
	if profile == nil {
		return
	}

	var req struct {
		AnalysisID string `json:"analysisId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysisId is required", "code": "VALIDATION"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), operationTimeouts["improve"])
	defer cancel()

	outcome, err := h.pipeline.Improve(ctx, profile, req.AnalysisID)
	if err != nil {
		respondError(c, "improve", err)
		return
	}

	setCreditsHeader(c, outcome)
	c.JSON(http.StatusOK, gin.H{"analysis_id": outcome.ID, "result": outcome.Result})
}
