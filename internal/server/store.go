package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Server) loadRoom(ctx context.Context, rawCode string) (*db.Room, error) {
	code, err := rules.NormalizeRoomCode(rawCode)
	if err != nil {
		return nil, err
	}
	var room db.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).Take(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rules.ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return &room, nil
}

// loadLiveRoom is loadRoom plus the TTL check.
func (s *Server) loadLiveRoom(ctx context.Context, rawCode string) (*db.Room, error) {
	room, err := s.loadRoom(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	if room.Expired(s.now()) {
		return nil, rules.ErrRoomExpired
	}
	return room, nil
}

func (s *Server) reloadRoom(ctx context.Context, roomID string) (*db.Room, error) {
	var room db.Room
	if err := s.db.WithContext(ctx).Where("id = ?", roomID).Take(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rules.ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return &room, nil
}

// lockRoom re-reads the room inside tx holding its row lock. Settings
// changes, secret writes and activation all serialize on it.
func lockRoom(tx *gorm.DB, roomID string) (*db.Room, error) {
	var room db.Room
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", roomID).Take(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rules.ErrRoomNotFound
		}
		return nil, fmt.Errorf("lock room %s: %w", roomID, err)
	}
	return &room, nil
}

// findMember returns nil without error when userID has no seat in the room.
func (s *Server) findMember(ctx context.Context, roomID, userID string) (*db.RoomPlayer, error) {
	var player db.RoomPlayer
	err := s.db.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).Take(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &player, nil
}

func (s *Server) roomPlayers(ctx context.Context, roomID string) ([]db.RoomPlayer, error) {
	var players []db.RoomPlayer
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("seat ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	return players, nil
}

func (s *Server) loadGame(ctx context.Context, gameID string) (*db.Game, error) {
	var game db.Game
	if err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(gameID)).Take(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rules.ErrGameNotFound
		}
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return &game, nil
}

// loadGameAndRoom resolves a game id to the game and the room it belongs to.
func (s *Server) loadGameAndRoom(ctx context.Context, gameID string) (*db.Game, *db.Room, error) {
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.reloadRoom(ctx, game.RoomID)
	if err != nil {
		return nil, nil, err
	}
	return game, room, nil
}

// latestGame returns the highest round in the room, or nil when no round
// has been created yet.
func (s *Server) latestGame(ctx context.Context, roomID string) (*db.Game, error) {
	var game db.Game
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("round_no DESC").Limit(1).Take(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest game: %w", err)
	}
	return &game, nil
}

// createRound inserts a waiting_secrets game with both secret rows unset.
// It must run inside tx; a duplicate round surfaces as a unique violation.
func createRound(tx *gorm.DB, roomID string, roundNo int) (*db.Game, error) {
	game := db.Game{
		RoomID:  roomID,
		RoundNo: roundNo,
		Status:  rules.GameWaitingSecrets,
	}
	if err := tx.Create(&game).Error; err != nil {
		return nil, err
	}
	secrets := []db.GameSecret{
		{GameID: game.ID, Seat: rules.SeatOne},
		{GameID: game.ID, Seat: rules.SeatTwo},
	}
	if err := tx.Create(&secrets).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

func spectatorKeyMatches(room *db.Room, key string) bool {
	return rules.NormalizeSpectatorKey(key) == strings.ToUpper(room.SpectatorCode)
}
