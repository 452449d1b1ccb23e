package database

import (
	"context"
	"strconv"
	"time"

	"trading_journal/pkg/models"
)

const entityTrade = "trades"

// TradeFilter optional list filters
type TradeFilter struct {
	Ticker string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (s *Store) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return err
	}
	s.audit(ctx, entityTrade, strconv.FormatUint(uint64(trade.ID), 10), models.AuditCreate, trade.UserID, trade)
	return nil
}

func (s *Store) GetTrade(ctx context.Context, userID string, id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&trade).Error; err != nil {
		return nil, notFound(err)
	}
	return &trade, nil
}

// UpdateTrade saves every field of trade; ownership is checked first.
func (s *Store) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	if _, err := s.GetTrade(ctx, trade.UserID, trade.ID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(trade).Error; err != nil {
		return err
	}
	s.audit(ctx, entityTrade, strconv.FormatUint(uint64(trade.ID), 10), models.AuditUpdate, trade.UserID, trade)
	return nil
}

func (s *Store) DeleteTrade(ctx context.Context, userID string, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Trade{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit(ctx, entityTrade, strconv.FormatUint(uint64(id), 10), models.AuditDelete, userID, nil)
	return nil
}

// ListTrades by entry time descending.
func (s *Store) ListTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Trade{}).Where("user_id = ?", userID)
	if filter.Ticker != "" {
		query = query.Where("ticker = ?", filter.Ticker)
	}
	if filter.From != nil {
		query = query.Where("entry_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("entry_time <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var trades []models.Trade
	err := query.Order("entry_time DESC").Find(&trades).Error
	return trades, total, err
}
