package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RoomEvent struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	RoomID    string         `gorm:"type:uuid;index;not null"`
	GameID    *string        `gorm:"type:uuid;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (e *RoomEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
