package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading_journal/pkg/models"
)

// UpsertSeries inserts or refreshes the series identified by (provider, code) and returns its id.
func (s *Store) UpsertSeries(ctx context.Context, series models.MacroSeries) (uint, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"country", "name", "frequency", "unit", "updated_at"}),
	}).Create(&series).Error
	if err != nil {
		return 0, err
	}

	var stored models.MacroSeries
	if err := db.Where("provider = ? AND code = ?", series.Provider, series.Code).First(&stored).Error; err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// FindSeries returns nil, nil when the series does not exist.
func (s *Store) FindSeries(ctx context.Context, provider, code string) (*models.MacroSeries, error) {
	var series models.MacroSeries
	err := s.db.WithContext(ctx).Where("provider = ? AND code = ?", provider, code).First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// UpsertObservation stores one revision and moves the latest markers.
// Only the highest revision of a date is flagged latest, and macro_latest
// follows the most recent date.
func (s *Store) UpsertObservation(ctx context.Context, seriesID uint, date time.Time, value float64, revisionSeq int) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		obs := models.MacroObservation{
			SeriesID:    seriesID,
			Date:        day,
			RevisionSeq: revisionSeq,
			Value:       value,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "series_id"}, {Name: "date"}, {Name: "revision_seq"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&obs).Error; err != nil {
			return err
		}

		var top models.MacroObservation
		if err := tx.Where("series_id = ? AND date = ?", seriesID, day).
			Order("revision_seq DESC").First(&top).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MacroObservation{}).
			Where("series_id = ? AND date = ? AND id <> ?", seriesID, day, top.ID).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&top).Update("is_latest", true).Error; err != nil {
			return err
		}

		var current models.MacroLatest
		err := tx.Where("series_id = ?", seriesID).First(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && current.Date.After(day) {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "series_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"date", "value", "revision_seq", "updated_at"}),
		}).Create(&models.MacroLatest{
			SeriesID:    seriesID,
			Date:        day,
			Value:       top.Value,
			RevisionSeq: top.RevisionSeq,
		}).Error
	})
}

// LatestObservations latest-flagged observations in [from, to], ascending by date.
func (s *Store) LatestObservations(ctx context.Context, seriesID uint, from, to time.Time) ([]models.MacroObservation, error) {
	var out []models.MacroObservation
	err := s.db.WithContext(ctx).
		Where("series_id = ? AND is_latest = ? AND date BETWEEN ? AND ?", seriesID, true, from, to).
		Order("date ASC").
		Find(&out).Error
	return out, err
}
