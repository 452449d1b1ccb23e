package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade journal entry owned by a user
type Trade struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	UserID     string         `json:"user_id" gorm:"index;size:64"`
	Ticker     string         `json:"ticker" gorm:"size:32;index"`
	Direction  string         `json:"direction" gorm:"size:8"`
	EntryTime  time.Time      `json:"entry_time" gorm:"index"`
	ExitTime   *time.Time     `json:"exit_time"`
	EntryPrice float64        `json:"entry_price"`
	ExitPrice  float64        `json:"exit_price"`
	Volume     float64        `json:"volume"`
	Profit     float64        `json:"profit"`
	Notes      string         `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
