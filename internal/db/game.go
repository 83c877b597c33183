package db

import (
	"time"

	"gorm.io/gorm"
)

type Game struct {
	ID             string     `gorm:"type:uuid;primaryKey"`
	RoomID         string     `gorm:"type:uuid;index;not null;uniqueIndex:idx_games_room_round"`
	RoundNo        int        `gorm:"not null;uniqueIndex:idx_games_room_round"`
	Status         string     `gorm:"size:32;not null"`
	TurnSeat       *int       `gorm:"default:null"`
	TurnDeadlineAt *time.Time `gorm:"default:null"`
	WinnerSeat     *int       `gorm:"default:null"`
	StartedAt      *time.Time `gorm:"default:null"`
	EndedAt        *time.Time `gorm:"default:null"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
	Secrets        []GameSecret
	Guesses        []Guess
	RematchVotes   []RematchVote
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
