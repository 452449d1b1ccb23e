package database

import (
	"context"
	"time"

	"trading_journal/pkg/models"
)

const entityAnalysis = "analysis_results"

// CreateAnalysisRecord inserts an analysis result and records the audit trail.
func (s *Store) CreateAnalysisRecord(ctx context.Context, record *models.AnalysisResult) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}
	s.audit(ctx, entityAnalysis, record.ID, models.AuditCreate, record.UserID, map[string]interface{}{
		"model":      record.Model,
		"prompt_tag": record.PromptTag,
		"trade_id":   record.TradeID,
	})
	return nil
}

// ListAnalysisResults newest first, paged.
func (s *Store) ListAnalysisResults(ctx context.Context, userID string, page, pageSize int) ([]models.AnalysisResult, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AnalysisResult{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []models.AnalysisResult
	err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&results).Error
	return results, total, err
}

func (s *Store) GetAnalysisResult(ctx context.Context, userID, id string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&result).Error; err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

// RecentAnalysisResults most recent first, created at or after since.
func (s *Store) RecentAnalysisResults(ctx context.Context, userID string, since time.Time, limit int) ([]models.AnalysisResult, error) {
	var results []models.AnalysisResult
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// DeleteAnalysisResult soft delete.
func (s *Store) DeleteAnalysisResult(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.AnalysisResult{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit(ctx, entityAnalysis, id, models.AuditDelete, userID, nil)
	return nil
}
