package server

import (
	"context"
	"fmt"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"

	"github.com/rs/zerolog/log"
)

// applyTimeoutIfExpired hands an expired turn to the other seat. There is no
// background timer: read and guess paths call this on the way in. The update
// is keyed on the expired seat and deadline, so when several callers notice
// the same expiry exactly one of them applies it.
func (s *Server) applyTimeoutIfExpired(ctx context.Context, room *db.Room) (bool, error) {
	if room.TurnSeconds <= 0 {
		return false, nil
	}
	game, err := s.latestGame(ctx, room.ID)
	if err != nil || game == nil {
		return false, err
	}
	expiry, ok := rules.ExpireTurn(rules.Turn{
		Status:   game.Status,
		Seat:     game.TurnSeat,
		Deadline: game.TurnDeadlineAt,
	}, room.TurnSeconds, s.now())
	if !ok {
		return false, nil
	}

	result := s.db.WithContext(ctx).Model(&db.Game{}).
		Where("id = ? AND status = ? AND turn_seat = ? AND turn_deadline_at = ?",
			game.ID, rules.GameActive, expiry.ExpiredSeat, expiry.ExpiredDeadline).
		Updates(map[string]any{
			"turn_seat":        expiry.NextSeat,
			"turn_deadline_at": expiry.NextDeadline,
			"updated_at":       s.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("apply turn timeout: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	log.Info().Str("room", room.Code).Str("game_id", game.ID).
		Int("expired_seat", expiry.ExpiredSeat).
		Int("next_seat", expiry.NextSeat).
		Msg("turn timed out")
	if err := s.publishEvent(ctx, room, game.ID, rules.EventTurnTimeout, EventPayload{
		GameID:       game.ID,
		ExpiredSeat:  expiry.ExpiredSeat,
		NextTurnSeat: expiry.NextSeat,
	}); err != nil {
		return true, err
	}
	return true, nil
}
