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

type secretResult struct {
	OK         bool   `json:"ok"`
	GameStatus string `json:"gameStatus"`
	Activated  bool   `json:"activated"`
}

type guessResult struct {
	TurnNo       int  `json:"turnNo"`
	Bulls        int  `json:"bulls"`
	Cows         int  `json:"cows"`
	IsWin        bool `json:"isWin"`
	NextTurnSeat *int `json:"nextTurnSeat"`
}

var (
	errTurnMoved = errors.New("turn moved before the guess was applied")
	errNotReady  = errors.New("game not ready to start")
)

func (s *Server) submitSecret(ctx context.Context, userID, gameID, rawSecret string) (secretResult, error) {
	game, room, err := s.loadGameAndRoom(ctx, gameID)
	if err != nil {
		return secretResult{}, err
	}
	if game.Status != rules.GameWaitingSecrets {
		return secretResult{}, rules.ErrGameAlreadyStarted
	}
	secret, err := rules.ValidateSecret(rawSecret)
	if err != nil {
		return secretResult{}, err
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return secretResult{}, err
	}
	if member == nil {
		return secretResult{}, rules.ErrForbidden
	}

	if err := s.storeSecret(ctx, game, member.Seat, secret); err != nil {
		return secretResult{}, err
	}
	activated, err := s.activateIfReady(ctx, game)
	if err != nil {
		return secretResult{}, err
	}

	current, err := s.loadGame(ctx, game.ID)
	if err != nil {
		return secretResult{}, err
	}
	if err := s.publishEvent(ctx, room, game.ID, rules.EventSecretSet, EventPayload{
		GameID:    game.ID,
		Seat:      member.Seat,
		Activated: activated,
	}); err != nil {
		return secretResult{}, err
	}
	return secretResult{OK: true, GameStatus: current.Status, Activated: activated}, nil
}

// storeSecret overwrites the seat's secret only while the game is still
// collecting secrets. It holds the room lock that activation takes, so a
// write cannot land after the game has started.
func (s *Server) storeSecret(ctx context.Context, game *db.Game, seat int, secret string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockRoom(tx, game.RoomID); err != nil {
			return err
		}
		now := s.now()
		stillWaiting := tx.Model(&db.Game{}).Select("1").Where("id = ? AND status = ?", game.ID, rules.GameWaitingSecrets)
		result := tx.Model(&db.GameSecret{}).
			Where("game_id = ? AND seat = ?", game.ID, seat).
			Where("EXISTS (?)", stillWaiting).
			Updates(map[string]any{"secret": secret, "is_set": true, "set_at": now, "updated_at": now})
		if result.Error != nil {
			return fmt.Errorf("store secret: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			return nil
		}

		var current db.Game
		if err := tx.Where("id = ?", game.ID).Take(&current).Error; err != nil {
			return fmt.Errorf("reload game: %w", err)
		}
		if current.Status != rules.GameWaitingSecrets {
			return rules.ErrGameAlreadyStarted
		}
		// The seat row is missing; recreate it.
		row := db.GameSecret{GameID: game.ID, Seat: seat, Secret: &secret, IsSet: true, SetAt: &now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "seat"}},
			DoUpdates: clause.AssignmentColumns([]string{"secret", "is_set", "set_at", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert secret: %w", err)
		}
		return nil
	})
}

// activateIfReady moves the game to active once both secrets are set. It
// holds the room lock and reads the turn timer from the locked row. Of
// several callers that see two secrets only one performs the transition.
func (s *Server) activateIfReady(ctx context.Context, game *db.Game) (bool, error) {
	var room *db.Room
	var seat int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = lockRoom(tx, game.RoomID)
		if err != nil {
			return err
		}
		var ready int64
		if err := tx.Model(&db.GameSecret{}).Where("game_id = ? AND is_set = ?", game.ID, true).Count(&ready).Error; err != nil {
			return fmt.Errorf("count secrets: %w", err)
		}
		if ready < 2 {
			return errNotReady
		}

		now := s.now()
		seat = s.firstSeat()
		var deadline any
		if d := rules.Deadline(room.TurnSeconds, now); d != nil {
			deadline = *d
		}
		result := tx.Model(&db.Game{}).
			Where("id = ? AND status = ?", game.ID, rules.GameWaitingSecrets).
			Updates(map[string]any{
				"status":           rules.GameActive,
				"turn_seat":        seat,
				"turn_deadline_at": deadline,
				"started_at":       now,
				"updated_at":       now,
			})
		if result.Error != nil {
			return fmt.Errorf("activate game: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errNotReady
		}
		if err := tx.Model(&db.Room{}).
			Where("id = ? AND status <> ?", room.ID, rules.RoomActive).
			Updates(map[string]any{"status": rules.RoomActive, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("activate room: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNotReady) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.Info().Str("room", room.Code).Str("game_id", game.ID).Int("first_seat", seat).Int("turn_seconds", room.TurnSeconds).Msg("game started")
	return true, nil
}

// submitGuess scores a guess and hands the turn over. turnNo is an optional
// retry token: the turn number the client believes it is playing.
func (s *Server) submitGuess(ctx context.Context, userID, gameID, rawGuess string, turnNo *int) (guessResult, error) {
	game, room, err := s.loadGameAndRoom(ctx, gameID)
	if err != nil {
		return guessResult{}, err
	}
	if game.Status != rules.GameActive {
		return guessResult{}, rules.ErrGameNotActive
	}
	if room.TurnSeconds > 0 {
		if _, err := s.applyTimeoutIfExpired(ctx, room); err != nil {
			return guessResult{}, err
		}
		if game, err = s.loadGame(ctx, game.ID); err != nil {
			return guessResult{}, err
		}
		if game.Status != rules.GameActive {
			return guessResult{}, rules.ErrGameNotActive
		}
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return guessResult{}, err
	}
	if member == nil {
		return guessResult{}, rules.ErrForbidden
	}

	conn := s.db.WithContext(ctx)
	if turnNo != nil {
		var seen int64
		if err := conn.Model(&db.Guess{}).Where("game_id = ? AND turn_no = ?", game.ID, *turnNo).Count(&seen).Error; err != nil {
			return guessResult{}, fmt.Errorf("check turn: %w", err)
		}
		if seen > 0 {
			return guessResult{}, rules.ErrTurnProcessed
		}
	}
	if game.TurnSeat == nil || *game.TurnSeat != member.Seat {
		return guessResult{}, rules.ErrNotYourTurn
	}
	now := s.now()
	if room.TurnSeconds > 0 && game.TurnDeadlineAt != nil && !game.TurnDeadlineAt.After(now) {
		return guessResult{}, rules.ErrTurnExpired
	}
	guess, err := rules.ValidateGuess(rawGuess)
	if err != nil {
		return guessResult{}, err
	}

	opponent := rules.FlipSeat(member.Seat)
	var secret db.GameSecret
	err = conn.Where("game_id = ? AND seat = ?", game.ID, opponent).Take(&secret).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return guessResult{}, fmt.Errorf("load opponent secret: %w", err)
	}
	if err != nil || !secret.IsSet || secret.Secret == nil {
		return guessResult{}, rules.ErrSecretNotReady
	}
	score := rules.BullsAndCows(*secret.Secret, guess)

	var lastTurn int
	if err := conn.Model(&db.Guess{}).Where("game_id = ?", game.ID).Select("COALESCE(MAX(turn_no), 0)").Scan(&lastTurn).Error; err != nil {
		return guessResult{}, fmt.Errorf("load last turn: %w", err)
	}
	nextTurn := lastTurn + 1
	if turnNo != nil && *turnNo != nextTurn {
		return guessResult{}, rules.ErrGameStateConflict
	}

	result := guessResult{TurnNo: nextTurn, Bulls: score.Bulls, Cows: score.Cows, IsWin: score.IsWin()}
	updates := map[string]any{"updated_at": now}
	if result.IsWin {
		updates["status"] = rules.GameFinished
		updates["winner_seat"] = member.Seat
		updates["turn_seat"] = nil
		updates["turn_deadline_at"] = nil
		updates["ended_at"] = now
	} else {
		var deadline any
		if d := rules.Deadline(room.TurnSeconds, now); d != nil {
			deadline = *d
		}
		updates["turn_seat"] = opponent
		updates["turn_deadline_at"] = deadline
		result.NextTurnSeat = &opponent
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		record := db.Guess{
			GameID:      game.ID,
			TurnNo:      nextTurn,
			GuesserSeat: member.Seat,
			Guess:       guess,
			Bulls:       score.Bulls,
			Cows:        score.Cows,
			CreatedAt:   now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		moved := tx.Model(&db.Game{}).
			Where("id = ? AND status = ? AND turn_seat = ?", game.ID, rules.GameActive, member.Seat).
			Updates(updates)
		if moved.Error != nil {
			return moved.Error
		}
		if moved.RowsAffected == 0 {
			return errTurnMoved
		}
		if result.IsWin {
			return tx.Model(&db.Room{}).
				Where("id = ? AND status = ?", room.ID, rules.RoomActive).
				Updates(map[string]any{"status": rules.RoomFinished, "updated_at": now}).Error
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errTurnMoved):
		return guessResult{}, rules.ErrGameStateConflict
	case db.IsUniqueViolation(err):
		return guessResult{}, rules.ErrTurnProcessed
	default:
		return guessResult{}, fmt.Errorf("apply guess: %w", err)
	}

	if err := s.publishEvent(ctx, room, game.ID, rules.EventTurnMade, EventPayload{
		GameID: game.ID,
		TurnNo: nextTurn,
		Seat:   member.Seat,
		Bulls:  &result.Bulls,
		Cows:   &result.Cows,
	}); err != nil {
		return guessResult{}, err
	}
	if result.IsWin {
		log.Info().Str("room", room.Code).Str("game_id", game.ID).Int("winner", member.Seat).Int("turns", nextTurn).Msg("game finished")
		if err := s.publishEvent(ctx, room, game.ID, rules.EventGameFinished, EventPayload{
			GameID:     game.ID,
			WinnerSeat: member.Seat,
		}); err != nil {
			return guessResult{}, err
		}
	}
	return result, nil
}
