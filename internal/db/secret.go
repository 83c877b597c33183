package db

import (
	"time"

	"gorm.io/gorm"
)

type GameSecret struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	GameID    string     `gorm:"type:uuid;index;not null;uniqueIndex:idx_game_secrets_game_seat"`
	Seat      int        `gorm:"not null;uniqueIndex:idx_game_secrets_game_seat"`
	Secret    *string    `gorm:"size:4;default:null"`
	IsSet     bool       `gorm:"not null;default:false"`
	SetAt     *time.Time `gorm:"default:null"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (s *GameSecret) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
