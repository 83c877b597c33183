package db

import (
	"time"

	"gorm.io/gorm"
)

// Guess rows are append-only; UNIQUE(game_id, turn_no) rejects a second
// write for the same turn.
type Guess struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	GameID      string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_guesses_game_turn"`
	TurnNo      int       `gorm:"not null;uniqueIndex:idx_guesses_game_turn"`
	GuesserSeat int       `gorm:"not null"`
	Guess       string    `gorm:"size:4;not null"`
	Bulls       int       `gorm:"not null"`
	Cows        int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (g *Guess) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
