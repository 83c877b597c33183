package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bulls-cows/internal/db"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

type EventPayload struct {
	GameID       string `json:"gameId,omitempty"`
	FromGameID   string `json:"fromGameId,omitempty"`
	ToGameID     string `json:"toGameId,omitempty"`
	Seat         int    `json:"seat,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	Rejoined     bool   `json:"rejoined,omitempty"`
	Activated    bool   `json:"activated,omitempty"`
	TurnNo       int    `json:"turnNo,omitempty"`
	Bulls        *int   `json:"bulls,omitempty"`
	Cows         *int   `json:"cows,omitempty"`
	WinnerSeat   int    `json:"winnerSeat,omitempty"`
	ExpiredSeat  int    `json:"expiredSeat,omitempty"`
	NextTurnSeat int    `json:"nextTurnSeat,omitempty"`
	TurnSeconds  *int   `json:"turnSeconds,omitempty"`
	MessageID    string `json:"id,omitempty"`
	Author       string `json:"author,omitempty"`
	Action       string `json:"action,omitempty"`
	Actor        string `json:"actor,omitempty"`
	TrackIndex   *int   `json:"trackIndex,omitempty"`
	IsPlaying    *bool  `json:"isPlaying,omitempty"`
}

// roomEvent is what websocket clients and the Redis relay see.
type roomEvent struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"roomCode"`
	GameID    *string         `json:"gameId,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// publishEvent appends to the room event log and fans the event out. It runs
// after the state change has committed, so a failure here surfaces as an
// error without undoing that change.
func (s *Server) publishEvent(ctx context.Context, room *db.Room, gameID string, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	record := db.RoomEvent{
		RoomID:    room.ID,
		Type:      eventType,
		Payload:   datatypes.JSON(data),
		CreatedAt: s.now(),
	}
	if gameID != "" {
		record.GameID = &gameID
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("persist %s event: %w", eventType, err)
	}

	event := roomEvent{
		ID:        record.ID,
		RoomCode:  room.Code,
		GameID:    record.GameID,
		Type:      eventType,
		Payload:   json.RawMessage(data),
		CreatedAt: record.CreatedAt,
	}
	if s.relay != nil {
		err := s.relay.Publish(ctx, event)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("room", room.Code).Str("type", eventType).Msg("relay publish failed, delivering locally")
	}
	s.ws.Broadcast(room.Code, event)
	return nil
}
