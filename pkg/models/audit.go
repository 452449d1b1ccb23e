package models

import (
	"encoding/json"
	"time"
)

// Audit actions
const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// AuditLog change record of a monitored entity
type AuditLog struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	Entity    string          `json:"entity" gorm:"size:64;index:idx_entity,priority:1"`
	EntityID  string          `json:"entity_id" gorm:"size:64;index:idx_entity,priority:2"`
	Action    string          `json:"action" gorm:"size:16"`
	UserID    string          `json:"user_id" gorm:"size:64"`
	Payload   json.RawMessage `json:"payload" gorm:"type:json"`
	CreatedAt time.Time       `json:"created_at"`
}
