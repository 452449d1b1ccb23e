package database

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"trading_journal/pkg/models"
)

// UpsertArticle inserts or refreshes an article by URL and returns its id.
func (s *Store) UpsertArticle(ctx context.Context, article *models.NewsArticle) (uint, error) {
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "source", "published_at", "updated_at"}),
	}).Create(article).Error; err != nil {
		return 0, err
	}

	var stored models.NewsArticle
	if err := db.Select("id").Where("url = ?", article.URL).First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// CreateSymbolIndex links an article to a symbol; existing links are kept.
func (s *Store) CreateSymbolIndex(ctx context.Context, symbol string, articleID uint, publishedAt time.Time) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.NewsSymbolIndex{
		Symbol:      symbol,
		ArticleID:   articleID,
		PublishedAt: publishedAt,
	}).Error
}

// ArticlesBySymbol newest first within [from, to].
func (s *Store) ArticlesBySymbol(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.NewsArticle, error) {
	var out []models.NewsArticle
	err := s.db.WithContext(ctx).
		Table("news_articles AS a").
		Select("a.*").
		Joins("JOIN news_symbol_index AS i ON i.article_id = a.id").
		Where("i.symbol = ? AND i.published_at BETWEEN ? AND ?", symbol, from, to).
		Order("i.published_at DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
