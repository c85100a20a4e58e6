package metrics

import (
	"log"

	"gorm.io/gorm"

	"github.com/qufrids/ad-analyzer-sub000/internal/models"
)

// UpdateUsageMetrics queries the database and updates stored-record gauges.
// Call this after pipeline runs or periodically.
func UpdateUsageMetrics(db *gorm.DB) {
	if db == nil {
		return
	}

	counts := []struct {
		recordType string
		model      interface{}
	}{
		{"analysis", &models.AnalysisRecord{}},
		{"comparison", &models.ComparisonRecord{}},
		{"spy", &models.SpyRecord{}},
		{"generation", &models.GenerationRecord{}},
	}

	for _, c := range counts {
		var n int64
		if err := db.Model(c.model).Count(&n).Error; err != nil {
			log.Printf("Metrics: failed to count %s records: %v", c.recordType, err)
			continue
		}
		RecordsStored.WithLabelValues(c.recordType).Set(float64(n))
	}
}
