package db

import (
	"time"

	"gorm.io/gorm"
)

type Room struct {
	ID              string     `gorm:"type:uuid;primaryKey"`
	Code            string     `gorm:"size:6;uniqueIndex;not null"`
	Status          string     `gorm:"size:32;not null"`
	HostUserID      string     `gorm:"size:64;not null"`
	SpectatorCode   string     `gorm:"size:16;not null"`
	TurnSeconds     int        `gorm:"not null;default:0"`
	MusicTrackIndex int        `gorm:"not null;default:0"`
	MusicIsPlaying  bool       `gorm:"not null;default:false"`
	MusicStartedAt  *time.Time `gorm:"default:null"`
	MusicUpdatedAt  time.Time  `gorm:"not null"`
	ExpiresAt       time.Time  `gorm:"index;not null"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
	Players         []RoomPlayer
	Games           []Game
	Events          []RoomEvent
	Messages        []RoomMessage
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Expired reports whether the room TTL has passed at now.
func (r *Room) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
