package server

import (
	"context"
	"fmt"
	"slices"
	"time"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type createRoomResult struct {
	RoomCode string `json:"roomCode"`
	RoomID   string `json:"roomId"`
	Seat     int    `json:"seat"`
}

type joinRoomResult struct {
	RoomID string `json:"roomId"`
	Seat   int    `json:"seat"`
}

type roomSettings struct {
	TurnSeconds int `json:"turnSeconds"`
}

type chatMessage struct {
	ID        string    `json:"id"`
	Seat      int       `json:"seat"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type musicState struct {
	TrackIndex int        `json:"trackIndex"`
	IsPlaying  bool       `json:"isPlaying"`
	StartedAt  *time.Time `json:"startedAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	TrackCount int        `json:"trackCount"`
}

// musicActor is whoever pressed a music control: a member identified by
// token, or a spectator holding the room's spectator key.
type musicActor struct {
	UserID       string
	SpectatorKey string
}

func (s *Server) createRoom(ctx context.Context, userID, displayName string) (createRoomResult, error) {
	name, err := rules.ValidateDisplayName(displayName)
	if err != nil {
		return createRoomResult{}, err
	}
	attempts := max(s.cfg.RoomCodeAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		now := s.now()
		room := db.Room{
			Code:           s.roomCode(),
			Status:         rules.RoomWaitingPlayer,
			HostUserID:     userID,
			SpectatorCode:  rules.NewSpectatorCode(),
			MusicUpdatedAt: now,
			ExpiresAt:      now.Add(time.Duration(s.cfg.RoomTTLHours) * time.Hour),
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&room).Error; err != nil {
				return err
			}
			host := db.RoomPlayer{
				RoomID:      room.ID,
				UserID:      userID,
				Seat:        rules.SeatOne,
				DisplayName: name,
				IsOnline:    true,
				LastSeenAt:  now,
			}
			return tx.Create(&host).Error
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				log.Warn().Str("code", room.Code).Int("attempt", attempt).Msg("room code collision")
				continue
			}
			return createRoomResult{}, fmt.Errorf("create room: %w", err)
		}

		log.Info().Str("room", room.Code).Str("room_id", room.ID).Msg("room created")
		if err := s.publishEvent(ctx, &room, "", rules.EventPlayerJoined, EventPayload{
			Seat:        rules.SeatOne,
			DisplayName: name,
		}); err != nil {
			return createRoomResult{}, err
		}
		return createRoomResult{RoomCode: room.Code, RoomID: room.ID, Seat: rules.SeatOne}, nil
	}
	return createRoomResult{}, rules.ErrRoomCreateFailed
}

func (s *Server) joinRoom(ctx context.Context, userID, displayName, rawCode string) (joinRoomResult, error) {
	name, err := rules.ValidateDisplayName(displayName)
	if err != nil {
		return joinRoomResult{}, err
	}
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return joinRoomResult{}, err
	}

	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return joinRoomResult{}, err
	}
	if member != nil {
		return s.rejoinRoom(ctx, room, member, name)
	}

	players, err := s.roomPlayers(ctx, room.ID)
	if err != nil {
		return joinRoomResult{}, err
	}
	if len(players) >= 2 {
		return joinRoomResult{}, rules.ErrRoomFull
	}
	seat := rules.SeatOne
	for _, player := range players {
		if player.Seat == rules.SeatOne {
			seat = rules.SeatTwo
		}
	}

	now := s.now()
	player := db.RoomPlayer{
		RoomID:      room.ID,
		UserID:      userID,
		Seat:        seat,
		DisplayName: name,
		IsOnline:    true,
		LastSeenAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		if !db.IsUniqueViolation(err) {
			return joinRoomResult{}, fmt.Errorf("insert player: %w", err)
		}
		// Lost the seat race, or the same user joined twice at once.
		member, err := s.findMember(ctx, room.ID, userID)
		if err != nil {
			return joinRoomResult{}, err
		}
		if member == nil {
			return joinRoomResult{}, rules.ErrRoomFull
		}
		return joinRoomResult{RoomID: room.ID, Seat: member.Seat}, nil
	}
	log.Info().Str("room", room.Code).Int("seat", seat).Msg("player joined")

	if err := s.ensureFirstRound(ctx, room); err != nil {
		return joinRoomResult{}, err
	}
	if err := s.publishEvent(ctx, room, "", rules.EventPlayerJoined, EventPayload{
		Seat:        seat,
		DisplayName: name,
	}); err != nil {
		return joinRoomResult{}, err
	}
	return joinRoomResult{RoomID: room.ID, Seat: seat}, nil
}

func (s *Server) rejoinRoom(ctx context.Context, room *db.Room, member *db.RoomPlayer, name string) (joinRoomResult, error) {
	now := s.now()
	if err := s.db.WithContext(ctx).Model(&db.RoomPlayer{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"display_name": name,
			"is_online":    true,
			"last_seen_at": now,
			"updated_at":   now,
		}).Error; err != nil {
		return joinRoomResult{}, fmt.Errorf("refresh player: %w", err)
	}
	if err := s.ensureFirstRound(ctx, room); err != nil {
		return joinRoomResult{}, err
	}
	if err := s.publishEvent(ctx, room, "", rules.EventPlayerJoined, EventPayload{
		Seat:        member.Seat,
		DisplayName: name,
		Rejoined:    true,
	}); err != nil {
		return joinRoomResult{}, err
	}
	return joinRoomResult{RoomID: room.ID, Seat: member.Seat}, nil
}

// ensureFirstRound creates round 1 once both seats are filled. Concurrent
// joins may both get here; the (room_id, round_no) constraint picks one and
// the loser treats the violation as done.
func (s *Server) ensureFirstRound(ctx context.Context, room *db.Room) error {
	conn := s.db.WithContext(ctx)
	var seats int64
	if err := conn.Model(&db.RoomPlayer{}).Where("room_id = ?", room.ID).Count(&seats).Error; err != nil {
		return fmt.Errorf("count players: %w", err)
	}
	if seats < 2 {
		return nil
	}
	var rounds int64
	if err := conn.Model(&db.Game{}).Where("room_id = ?", room.ID).Count(&rounds).Error; err != nil {
		return fmt.Errorf("count games: %w", err)
	}
	if rounds == 0 {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, err := createRound(tx, room.ID, 1)
			return err
		})
		if err != nil && !db.IsUniqueViolation(err) {
			return fmt.Errorf("create first round: %w", err)
		}
	}
	if err := conn.Model(&db.Room{}).
		Where("id = ? AND status = ?", room.ID, rules.RoomWaitingPlayer).
		Updates(map[string]any{"status": rules.RoomSettingSecrets, "updated_at": s.now()}).Error; err != nil {
		return fmt.Errorf("advance room status: %w", err)
	}
	return nil
}

func (s *Server) heartbeat(ctx context.Context, userID, rawCode string) error {
	room, err := s.loadRoom(ctx, rawCode)
	if err != nil {
		return err
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return rules.ErrForbidden
	}
	return s.touchPresence(ctx, member)
}

func (s *Server) touchPresence(ctx context.Context, member *db.RoomPlayer) error {
	now := s.now()
	if err := s.db.WithContext(ctx).Model(&db.RoomPlayer{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{"is_online": true, "last_seen_at": now, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	member.IsOnline = true
	member.LastSeenAt = now
	return nil
}

func (s *Server) updateSettings(ctx context.Context, userID, rawCode string, turnSeconds int) (roomSettings, error) {
	seconds, err := rules.ValidateTurnSeconds(turnSeconds)
	if err != nil {
		return roomSettings{}, err
	}
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return roomSettings{}, err
	}
	if room.HostUserID != userID {
		return roomSettings{}, rules.ErrForbidden
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockRoom(tx, room.ID)
		if err != nil {
			return err
		}
		if locked.Status == rules.RoomActive {
			return rules.ErrGameAlreadyActive
		}
		result := tx.Model(&db.Room{}).
			Where("id = ? AND status <> ?", room.ID, rules.RoomActive).
			Updates(map[string]any{"turn_seconds": seconds, "updated_at": s.now()})
		if result.Error != nil {
			return fmt.Errorf("update settings: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return rules.ErrGameAlreadyActive
		}
		return nil
	})
	if err != nil {
		return roomSettings{}, err
	}
	if err := s.publishEvent(ctx, room, "", rules.EventSettingsUpdated, EventPayload{TurnSeconds: &seconds}); err != nil {
		return roomSettings{}, err
	}
	return roomSettings{TurnSeconds: seconds}, nil
}

func (s *Server) postChat(ctx context.Context, userID, rawCode, text string) (chatMessage, error) {
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return chatMessage{}, err
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return chatMessage{}, err
	}
	if member == nil {
		return chatMessage{}, rules.ErrForbidden
	}
	body, err := rules.ValidateChatMessage(text)
	if err != nil {
		return chatMessage{}, err
	}
	record := db.RoomMessage{
		RoomID:      room.ID,
		UserID:      userID,
		DisplayName: member.DisplayName,
		Message:     body,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return chatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}
	if err := s.publishEvent(ctx, room, "", rules.EventChatMessage, EventPayload{
		MessageID: record.ID,
		Author:    member.DisplayName,
	}); err != nil {
		return chatMessage{}, err
	}
	return chatMessage{
		ID:        record.ID,
		Seat:      member.Seat,
		Author:    record.DisplayName,
		Message:   record.Message,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (s *Server) updateMusic(ctx context.Context, actor musicActor, rawCode, rawAction string) (musicState, error) {
	action, err := rules.ValidateMusicAction(rawAction)
	if err != nil {
		return musicState{}, err
	}
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return musicState{}, err
	}

	label := ""
	if actor.UserID != "" {
		member, err := s.findMember(ctx, room.ID, actor.UserID)
		if err != nil {
			return musicState{}, err
		}
		if member != nil {
			label = member.DisplayName
		}
	}
	if label == "" && actor.SpectatorKey != "" && spectatorKeyMatches(room, actor.SpectatorKey) {
		label = rules.RoleSpectator
	}
	if label == "" {
		return musicState{}, rules.ErrForbidden
	}

	now := s.now()
	trackCount := s.trackCount()
	next := musicState{
		TrackIndex: room.MusicTrackIndex,
		IsPlaying:  room.MusicIsPlaying,
		StartedAt:  room.MusicStartedAt,
		UpdatedAt:  now,
		TrackCount: trackCount,
	}
	switch action {
	case rules.MusicNext:
		next.TrackIndex = rules.NormalizeTrackIndex(room.MusicTrackIndex+1, trackCount)
		next.IsPlaying = true
		next.StartedAt = &now
	case rules.MusicToggle:
		next.IsPlaying = !room.MusicIsPlaying
		if next.IsPlaying {
			next.StartedAt = &now
		} else {
			next.StartedAt = nil
		}
	}

	var startedAt any
	if next.StartedAt != nil {
		startedAt = *next.StartedAt
	}
	result := s.db.WithContext(ctx).Model(&db.Room{}).
		Where("id = ? AND music_track_index = ? AND music_is_playing = ?", room.ID, room.MusicTrackIndex, room.MusicIsPlaying).
		Updates(map[string]any{
			"music_track_index": next.TrackIndex,
			"music_is_playing":  next.IsPlaying,
			"music_started_at":  startedAt,
			"music_updated_at":  now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return musicState{}, fmt.Errorf("update music: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return musicState{}, rules.ErrMusicStateConflict
	}
	if err := s.publishEvent(ctx, room, "", rules.EventMusicUpdated, EventPayload{
		Action:     action,
		Actor:      label,
		TrackIndex: &next.TrackIndex,
		IsPlaying:  &next.IsPlaying,
	}); err != nil {
		return musicState{}, err
	}
	return next, nil
}

func (s *Server) trackCount() int {
	return max(s.cfg.MusicTrackCount, 1)
}

type chatPage struct {
	Messages   []chatMessage `json:"messages"`
	Pagination pageInfo      `json:"pagination"`
}

// chatHistory pages backwards through the room's chat, newest page first.
// Messages inside a page stay in chronological order.
func (s *Server) chatHistory(ctx context.Context, userID, rawCode string, page, perPage int) (chatPage, error) {
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return chatPage{}, err
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return chatPage{}, err
	}
	if member == nil {
		return chatPage{}, rules.ErrForbidden
	}

	conn := s.db.WithContext(ctx)
	var total int64
	if err := conn.Model(&db.RoomMessage{}).Where("room_id = ?", room.ID).Count(&total).Error; err != nil {
		return chatPage{}, fmt.Errorf("count chat: %w", err)
	}
	info := buildPageInfo(page, perPage, total)
	var records []db.RoomMessage
	if err := conn.Where("room_id = ?", room.ID).
		Order("created_at DESC").
		Offset((info.Page - 1) * info.PerPage).
		Limit(info.PerPage).
		Find(&records).Error; err != nil {
		return chatPage{}, fmt.Errorf("load chat page: %w", err)
	}
	slices.Reverse(records)

	players, err := s.roomPlayers(ctx, room.ID)
	if err != nil {
		return chatPage{}, err
	}
	return chatPage{Messages: toChatMessages(records, players), Pagination: info}, nil
}

func toChatMessages(records []db.RoomMessage, players []db.RoomPlayer) []chatMessage {
	seats := make(map[string]int, len(players))
	for _, player := range players {
		seats[player.UserID] = player.Seat
	}
	messages := make([]chatMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, chatMessage{
			ID:        record.ID,
			Seat:      seats[record.UserID],
			Author:    record.DisplayName,
			Message:   record.Message,
			CreatedAt: record.CreatedAt,
		})
	}
	return messages
}
