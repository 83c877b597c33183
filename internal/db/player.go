package db

import (
	"time"

	"gorm.io/gorm"
)

type RoomPlayer struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	RoomID      string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_room_players_room_user;uniqueIndex:idx_room_players_room_seat"`
	UserID      string    `gorm:"size:64;not null;uniqueIndex:idx_room_players_room_user"`
	Seat        int       `gorm:"not null;uniqueIndex:idx_room_players_room_seat"`
	DisplayName string    `gorm:"size:64;not null"`
	IsOnline    bool      `gorm:"not null;default:false"`
	LastSeenAt  time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (p *RoomPlayer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Online reports presence: the flag must be set and the last heartbeat
// must be within stale of now.
func (p *RoomPlayer) Online(now time.Time, stale time.Duration) bool {
	if !p.IsOnline {
		return false
	}
	return now.Sub(p.LastSeenAt) <= stale
}
