package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"trading_journal/pkg/models"
)

// ErrNotFound record absent or owned by another user
var ErrNotFound = errors.New("record not found")

// Store gorm-backed implementation of every storage contract used by the service.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// writeAudit appends an audit row for a monitored entity.
func (s *Store) writeAudit(ctx context.Context, entity, entityID, action, userID string, payload interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		raw = data
	}
	return s.db.WithContext(ctx).Create(&models.AuditLog{
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		UserID:   userID,
		Payload:  raw,
	}).Error
}

// audit writes the trail row; failures are logged and dropped.
func (s *Store) audit(ctx context.Context, entity, entityID, action, userID string, payload interface{}) {
	if err := s.writeAudit(ctx, entity, entityID, action, userID, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"entity":   entity,
			"entityId": entityID,
			"action":   action,
		}).WithError(err).Warn("audit write failed")
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
