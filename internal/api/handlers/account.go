package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qufrids/ad-analyzer-sub000/internal/middleware"
	"github.com/qufrids/ad-analyzer-sub000/internal/services"
)

// AccountHandler serves credit balances and the billing provider webhook.
type AccountHandler struct {
	entitlements  *services.EntitlementService
	webhookSecret string
}

func NewAccountHandler(entitlements *services.EntitlementService, webhookSecret string) *AccountHandler {
	return &AccountHandler{entitlements: entitlements, webhookSecret: webhookSecret}
}

// Credits returns the caller's current balances and subscription state.
// GET /api/me/credits
func (h *AccountHandler) Credits(c *gin.Context) {
	profile, ok := middleware.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "AUTH_REQUIRED"})
		return
	}

	// Re-read so the client sees post-debit numbers, not the row snapshot
	// auth loaded at the start of the request.
	fresh, err := h.entitlements.GetByID(profile.ID)
	if err != nil {
		log.Printf("[API] credits reload failed for %s: %v", profile.ID, err)
		fresh = profile
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_status": fresh.SubscriptionStatus,
		"subscribed":          fresh.IsSubscribed(),
		"credits": gin.H{
			"analysis":    fresh.AnalysisCredits,
			"comparison":  fresh.ComparisonCredits,
			"spy":         fresh.SpyCredits,
			"generation":  fresh.GenerationCredits,
			"improvement": fresh.ImprovementCredits,
		},
	})
}

// BillingWebhook applies subscription lifecycle events from the billing
// provider. Authenticated by a shared secret header, not user sessions.
// POST /api/webhooks/billing
func (h *AccountHandler) BillingWebhook(c *gin.Context) {
	if h.webhookSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing webhook not configured", "code": "WEBHOOK_DISABLED"})
		return
	}

	provided := c.GetHeader("X-Billing-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret", "code": "WEBHOOK_UNAUTHORIZED"})
		return
	}

	var event struct {
		EventType string `json:"event_type" binding:"required"`
		UserID    string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type and user_id are required", "code": "VALIDATION"})
		return
	}

	if err := h.entitlements.ApplyBillingEvent(event.UserID, event.EventType); err != nil {
		if errors.Is(err, services.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user", "code": "NOT_FOUND"})
			return
		}
		log.Printf("[API] billing event %s for %s failed: %v", event.EventType, event.UserID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not apply billing event", "code": "BILLING_EVENT_FAILED"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}
