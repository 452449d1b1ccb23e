package models

import "time"

// NewsArticle unique by URL
type NewsArticle struct {
	ID          uint      `gorm:"primarykey"`
	URL         string    `gorm:"size:768;uniqueIndex"`
	Title       string    `gorm:"size:512"`
	Description string    `gorm:"type:text"`
	Source      string    `gorm:"size:128"`
	PublishedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewsSymbolIndex links an article to a symbol for range lookups
type NewsSymbolIndex struct {
	ID          uint      `gorm:"primarykey"`
	Symbol      string    `gorm:"size:32;uniqueIndex:idx_symbol_article;index:idx_symbol_published,priority:1"`
	ArticleID   uint      `gorm:"uniqueIndex:idx_symbol_article"`
	PublishedAt time.Time `gorm:"index:idx_symbol_published,priority:2"`
	CreatedAt   time.Time
}

func (NewsSymbolIndex) TableName() string {
	return "news_symbol_index"
}
