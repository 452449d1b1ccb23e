package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// AnalysisResult maps the analysis_results table; one row per period analysis, never updated.
type AnalysisResult struct {
	ID        string          `json:"id" gorm:"primaryKey;type:char(36)"`
	UserID    string          `json:"user_id" gorm:"index;size:64"`
	TradeID   *uint           `json:"trade_id,omitempty" gorm:"index"`
	PromptTag string          `json:"prompt_tag" gorm:"size:64"`
	Response  json.RawMessage `json:"response" gorm:"type:json"`
	Model     string          `json:"model" gorm:"size:128"`
	Metadata  json.RawMessage `json:"metadata" gorm:"type:json"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
