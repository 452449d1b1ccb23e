package models

import "time"

// MacroSeries identified by (provider, code), code is COUNTRY_KEY
type MacroSeries struct {
	ID        uint   `gorm:"primarykey"`
	Provider  string `gorm:"size:32;uniqueIndex:idx_provider_code"`
	Code      string `gorm:"size:64;uniqueIndex:idx_provider_code"`
	Country   string `gorm:"size:8"`
	Name      string `gorm:"size:128"`
	Frequency string `gorm:"size:16"`
	Unit      string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MacroSeries) TableName() string {
	return "macro_series"
}

// MacroObservation one revision of a dated value
type MacroObservation struct {
	ID          uint      `gorm:"primarykey"`
	SeriesID    uint      `gorm:"uniqueIndex:idx_series_date_rev;index:idx_series_latest,priority:1"`
	Date        time.Time `gorm:"type:date;uniqueIndex:idx_series_date_rev;index:idx_series_latest,priority:3"`
	RevisionSeq int       `gorm:"uniqueIndex:idx_series_date_rev"`
	Value       float64
	IsLatest    bool `gorm:"index:idx_series_latest,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MacroLatest latest value per series
type MacroLatest struct {
	SeriesID    uint      `gorm:"primaryKey;autoIncrement:false"`
	Date        time.Time `gorm:"type:date"`
	Value       float64
	RevisionSeq int
	UpdatedAt   time.Time
}

func (MacroLatest) TableName() string {
	return "macro_latest"
}
