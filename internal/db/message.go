package db

import (
	"time"

	"gorm.io/gorm"
)

type RoomMessage struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	RoomID      string    `gorm:"type:uuid;index:idx_room_messages_room_created;not null"`
	UserID      string    `gorm:"size:64;not null"`
	DisplayName string    `gorm:"size:64;not null"`
	Message     string    `gorm:"size:1200;not null"`
	CreatedAt   time.Time `gorm:"index:idx_room_messages_room_created;not null"`
}

func (m *RoomMessage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
