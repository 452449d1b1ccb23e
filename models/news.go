package models

import "time"

// NewsItem article selected for a symbol; Score is per request only
type NewsItem struct {
	Symbol      string    `json:"symbol,omitempty"`
	Time        time.Time `json:"time"`
	Source      string    `json:"source,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Score       float64   `json:"score"`
}
