package db

import (
	"time"

	"gorm.io/gorm"
)

type RematchVote struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	GameID    string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_rematch_votes_game_seat"`
	Seat      int       `gorm:"not null;uniqueIndex:idx_rematch_votes_game_seat"`
	Voted     bool      `gorm:"not null;default:false"`
	VotedAt   time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (v *RematchVote) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
