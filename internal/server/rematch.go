package server

import (
	"context"
	"errors"
	"fmt"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type voteTally struct {
	Seat1 bool `json:"seat1"`
	Seat2 bool `json:"seat2"`
}

type rematchResult struct {
	Votes          voteTally `json:"votes"`
	RematchStarted bool      `json:"rematchStarted"`
	NextGameID     string    `json:"nextGameId,omitempty"`
}

func (s *Server) voteRematch(ctx context.Context, userID, gameID string, vote bool) (rematchResult, error) {
	if !vote {
		return rematchResult{}, rules.ErrInvalidVote
	}
	game, room, err := s.loadGameAndRoom(ctx, gameID)
	if err != nil {
		return rematchResult{}, err
	}
	if game.Status != rules.GameFinished {
		return rematchResult{}, rules.ErrGameNotFinished
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return rematchResult{}, err
	}
	if member == nil {
		return rematchResult{}, rules.ErrForbidden
	}

	conn := s.db.WithContext(ctx)
	now := s.now()
	ballot := db.RematchVote{GameID: game.ID, Seat: member.Seat, Voted: true, VotedAt: now}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "seat"}},
		DoUpdates: clause.AssignmentColumns([]string{"voted", "voted_at", "updated_at"}),
	}).Create(&ballot).Error; err != nil {
		return rematchResult{}, fmt.Errorf("record rematch vote: %w", err)
	}

	tally, err := s.rematchTally(ctx, game.ID)
	if err != nil {
		return rematchResult{}, err
	}
	if !tally.Seat1 || !tally.Seat2 {
		if err := s.publishEvent(ctx, room, game.ID, rules.EventRematchRequested, EventPayload{
			GameID: game.ID,
			Seat:   member.Seat,
		}); err != nil {
			return rematchResult{}, err
		}
		return rematchResult{Votes: tally}, nil
	}

	next, created, err := s.startNextRound(ctx, room, game)
	if err != nil {
		return rematchResult{}, err
	}
	if created {
		if err := conn.Model(&db.Room{}).
			Where("id = ? AND status = ?", room.ID, rules.RoomFinished).
			Updates(map[string]any{"status": rules.RoomSettingSecrets, "updated_at": now}).Error; err != nil {
			return rematchResult{}, fmt.Errorf("reset room status: %w", err)
		}
		log.Info().Str("room", room.Code).Int("round", next.RoundNo).Msg("rematch started")
		if err := s.publishEvent(ctx, room, next.ID, rules.EventRematchStarted, EventPayload{
			FromGameID: game.ID,
			ToGameID:   next.ID,
		}); err != nil {
			return rematchResult{}, err
		}
	}
	return rematchResult{Votes: tally, RematchStarted: true, NextGameID: next.ID}, nil
}

func (s *Server) rematchTally(ctx context.Context, gameID string) (voteTally, error) {
	var votes []db.RematchVote
	if err := s.db.WithContext(ctx).Where("game_id = ? AND voted = ?", gameID, true).Find(&votes).Error; err != nil {
		return voteTally{}, fmt.Errorf("load rematch votes: %w", err)
	}
	return tallyVotes(votes), nil
}

func tallyVotes(votes []db.RematchVote) voteTally {
	var tally voteTally
	for _, vote := range votes {
		if !vote.Voted {
			continue
		}
		switch vote.Seat {
		case rules.SeatOne:
			tally.Seat1 = true
		case rules.SeatTwo:
			tally.Seat2 = true
		}
	}
	return tally
}

// startNextRound returns the round after game, creating it unless another
// voter got there first. created reports whether this call inserted it.
func (s *Server) startNextRound(ctx context.Context, room *db.Room, game *db.Game) (*db.Game, bool, error) {
	existing, err := s.roundAfter(ctx, room.ID, game.RoundNo)
	if err != nil || existing != nil {
		return existing, false, err
	}

	var next *db.Game
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createRound(tx, room.ID, game.RoundNo+1)
		next = created
		return err
	})
	if err == nil {
		return next, true, nil
	}
	if !db.IsUniqueViolation(err) {
		return nil, false, fmt.Errorf("create next round: %w", err)
	}
	existing, err = s.roundAfter(ctx, room.ID, game.RoundNo)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("next round vanished after unique violation")
	}
	return existing, false, nil
}

func (s *Server) roundAfter(ctx context.Context, roomID string, roundNo int) (*db.Game, error) {
	var game db.Game
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND round_no > ?", roomID, roundNo).
		Order("round_no ASC").Limit(1).Take(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load next round: %w", err)
	}
	return &game, nil
}
