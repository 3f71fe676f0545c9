package model

import (
	"time"

	"gorm.io/gorm"
)

type SyncStatus string

const (
	StatusSuccess SyncStatus = "SUCCESS"
	StatusFailed  SyncStatus = "FAILED"
)

// History is one applied action, successful or not.
type History struct {
	gorm.Model
	Kind     string     `gorm:"not null"`
	Key      string     `gorm:"not null;index"`
	Status   SyncStatus `gorm:"not null;index"`
	ErrMsg   string
	SyncedAt time.Time `gorm:"not null;index"`
}
