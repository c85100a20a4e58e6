package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisRecord stores a single-image analysis run. Result holds the
// normalized model output as an opaque JSON document; its internal shape is
// owned by the prompt/parser contract, not by this layer. ImprovementResult
// is attached at most once by a later /improve call; no other mutation ever
// happens after creation.
type AnalysisRecord struct {
	ID                string         `json:"id" gorm:"primaryKey"`
	UserID            string         `json:"user_id" gorm:"index;not null"`
	ImagePath         string         `json:"image_path" gorm:"not null"`
	Platform          string         `json:"platform" gorm:"size:30;index"`
	Niche             string         `json:"niche" gorm:"size:30;index"`
	TargetAudience    string         `json:"target_audience"`
	ProductOffer      string         `json:"product_offer"`
	Result            datatypes.JSON `json:"result"`
	ImprovementResult datatypes.JSON `json:"improvement_result,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func (AnalysisRecord) TableName() string {
	return "analysis_records"
}

// ComparisonRecord stores a two-image comparison run.
type ComparisonRecord struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	UserID     string         `json:"user_id" gorm:"index;not null"`
	ImageAPath string         `json:"image_a_path" gorm:"not null"`
	ImageBPath string         `json:"image_b_path" gorm:"not null"`
	Platform   string         `json:"platform" gorm:"size:30"`
	Niche      string         `json:"niche" gorm:"size:30"`
	Result     datatypes.JSON `json:"result"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (ComparisonRecord) TableName() string {
	return "comparison_records"
}

// SpyRecord stores a competitor-ad breakdown run.
type SpyRecord struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"index;not null"`
	ImagePath   string         `json:"image_path" gorm:"not null"`
	Platform    string         `json:"platform" gorm:"size:30"`
	Niche       string         `json:"niche" gorm:"size:30"`
	UserProduct string         `json:"user_product"`
	Result      datatypes.JSON `json:"result"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (SpyRecord) TableName() string {
	return "spy_records"
}

// GenerationRecord stores a URL-to-ad-copy run. The result document carries
// the scraped product info (including its fetch_success flag) alongside the
// generated variants.
type GenerationRecord struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	UserID    string         `json:"user_id" gorm:"index;not null"`
	SourceURL string         `json:"source_url" gorm:"not null"`
	Platforms datatypes.JSON `json:"platforms"`
	Tone      string         `json:"tone" gorm:"size:30"`
	Result    datatypes.JSON `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

func (GenerationRecord) TableName() string {
	return "generation_records"
}
