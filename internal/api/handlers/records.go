package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qufrids/ad-analyzer-sub000/internal/middleware"
	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

// RecordHandler reads back stored analysis history. Rows are always scoped to
// the authenticated caller; there is no cross-user read path.
type RecordHandler struct {
	db *gorm.DB
}

func NewRecordHandler(db *gorm.DB) *RecordHandler {
	return &RecordHandler{db: db}
}

// ListAnalyses returns the caller's analyses, newest first.
// GET /api/analyses
func (h *RecordHandler) ListAnalyses(c *gin.Context) {
	profile, ok := middleware.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "AUTH_REQUIRED"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	var records []models.AnalysisRecord
	err := h.db.Where("user_id = ?", profile.ID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load analyses", "code": "STORAGE_FAILED"})
		return
	}

	var total int64
	h.db.Model(&models.AnalysisRecord{}).Where("user_id = ?", profile.ID).Count(&total)

	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAnalysis returns one analysis, including any attached improvement.
// GET /api/analyses/:id
func (h *RecordHandler) GetAnalysis(c *gin.Context) {
	profile, ok := middleware.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "AUTH_REQUIRED"})
		return
	}

	var record models.AnalysisRecord
	err := h.db.First(&record, "id = ? AND user_id = ?", c.Param("id"), profile.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found", "code": "NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load analysis", "code": "STORAGE_FAILED"})
		return
	}

	c.JSON(http.StatusOK, record)
}
