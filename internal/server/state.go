package server

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"bulls-cows/internal/db"
	"bulls-cows/internal/rules"
)

type RoomState struct {
	Room          roomView      `json:"room"`
	Viewer        viewerView    `json:"viewer"`
	Players       []playerView  `json:"players"`
	Game          *gameView     `json:"game"`
	Chat          []chatMessage `json:"chat"`
	Stats         roomStats     `json:"stats"`
	Music         musicState    `json:"music"`
	SpectatorPath string        `json:"spectatorPath,omitempty"`
}

type roomView struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	TurnSeconds int       `json:"turnSeconds"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type viewerView struct {
	Role   string `json:"role"`
	Seat   *int   `json:"seat"`
	IsHost bool   `json:"isHost"`
}

type playerView struct {
	Seat        int       `json:"seat"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	IsOnline    bool      `json:"isOnline"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

type secretView struct {
	Seat  int     `json:"seat"`
	IsSet bool    `json:"isSet"`
	Value *string `json:"value,omitempty"`
}

type guessView struct {
	TurnNo    int       `json:"turnNo"`
	Seat      int       `json:"seat"`
	Guess     string    `json:"guess"`
	Bulls     int       `json:"bulls"`
	Cows      int       `json:"cows"`
	CreatedAt time.Time `json:"createdAt"`
}

type gameView struct {
	ID             string       `json:"id"`
	RoundNo        int          `json:"roundNo"`
	Status         string       `json:"status"`
	TurnSeat       *int         `json:"turnSeat"`
	TurnDeadlineAt *time.Time   `json:"turnDeadlineAt"`
	WinnerSeat     *int         `json:"winnerSeat"`
	StartedAt      *time.Time   `json:"startedAt"`
	EndedAt        *time.Time   `json:"endedAt"`
	Secrets        []secretView `json:"secrets"`
	Guesses        []guessView  `json:"guesses"`
	RematchVotes   voteTally    `json:"rematchVotes"`
}

type seatCounts struct {
	Seat1 int `json:"seat1"`
	Seat2 int `json:"seat2"`
}

type roomStats struct {
	Wins           seatCounts `json:"wins"`
	FinishedRounds int        `json:"finishedRounds"`
	AvgTurns       float64    `json:"avgTurns"`
}

// fetchPlayerState is the member's view of the room. Fetching also counts as
// a heartbeat.
func (s *Server) fetchPlayerState(ctx context.Context, userID, rawCode string) (RoomState, error) {
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return RoomState{}, err
	}
	member, err := s.findMember(ctx, room.ID, userID)
	if err != nil {
		return RoomState{}, err
	}
	if member == nil {
		return RoomState{}, rules.ErrForbidden
	}
	if _, err := s.applyTimeoutIfExpired(ctx, room); err != nil {
		return RoomState{}, err
	}
	if err := s.touchPresence(ctx, member); err != nil {
		return RoomState{}, err
	}
	if room, err = s.reloadRoom(ctx, room.ID); err != nil {
		return RoomState{}, err
	}
	seat := member.Seat
	state, err := s.buildViewerState(ctx, room, &seat, rules.RolePlayer, room.HostUserID == userID)
	if err != nil {
		return RoomState{}, err
	}
	state.SpectatorPath = "/watch/" + room.Code + "?key=" + room.SpectatorCode
	return state, nil
}

func (s *Server) fetchSpectatorState(ctx context.Context, rawCode, key string) (RoomState, error) {
	room, err := s.loadLiveRoom(ctx, rawCode)
	if err != nil {
		return RoomState{}, err
	}
	if !spectatorKeyMatches(room, key) {
		return RoomState{}, rules.ErrInvalidSpectatorKey
	}
	if _, err := s.applyTimeoutIfExpired(ctx, room); err != nil {
		return RoomState{}, err
	}
	return s.buildViewerState(ctx, room, nil, rules.RoleSpectator, false)
}

// buildViewerState projects the room for one viewer. Only a player's own
// secret is ever included; spectators see set flags alone.
func (s *Server) buildViewerState(ctx context.Context, room *db.Room, viewerSeat *int, role string, isHost bool) (RoomState, error) {
	now := s.now()
	state := RoomState{
		Room: roomView{
			ID:          room.ID,
			Code:        room.Code,
			Status:      room.Status,
			TurnSeconds: room.TurnSeconds,
			ExpiresAt:   room.ExpiresAt,
		},
		Viewer: viewerView{Role: role, Seat: viewerSeat, IsHost: isHost},
		Music: musicState{
			TrackIndex: room.MusicTrackIndex,
			IsPlaying:  room.MusicIsPlaying,
			StartedAt:  room.MusicStartedAt,
			UpdatedAt:  room.MusicUpdatedAt,
			TrackCount: s.trackCount(),
		},
	}

	players, err := s.roomPlayers(ctx, room.ID)
	if err != nil {
		return RoomState{}, err
	}
	stale := time.Duration(s.cfg.HeartbeatStaleSeconds) * time.Second
	state.Players = make([]playerView, 0, len(players))
	for i := range players {
		player := &players[i]
		state.Players = append(state.Players, playerView{
			Seat:        player.Seat,
			DisplayName: player.DisplayName,
			IsHost:      player.UserID == room.HostUserID,
			IsOnline:    player.Online(now, stale),
			LastSeenAt:  player.LastSeenAt,
		})
	}

	if state.Chat, err = s.chatTail(ctx, room.ID, players); err != nil {
		return RoomState{}, err
	}
	if state.Stats, err = s.roomStats(ctx, room.ID); err != nil {
		return RoomState{}, err
	}

	game, err := s.latestGame(ctx, room.ID)
	if err != nil {
		return RoomState{}, err
	}
	if game != nil {
		view, err := s.projectGame(ctx, game, viewerSeat, role)
		if err != nil {
			return RoomState{}, err
		}
		state.Game = view
	}
	return state, nil
}

func (s *Server) projectGame(ctx context.Context, game *db.Game, viewerSeat *int, role string) (*gameView, error) {
	conn := s.db.WithContext(ctx)
	var secrets []db.GameSecret
	if err := conn.Where("game_id = ?", game.ID).Order("seat ASC").Find(&secrets).Error; err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	var guesses []db.Guess
	if err := conn.Where("game_id = ?", game.ID).Order("turn_no ASC").Find(&guesses).Error; err != nil {
		return nil, fmt.Errorf("load guesses: %w", err)
	}
	tally, err := s.rematchTally(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	view := &gameView{
		ID:             game.ID,
		RoundNo:        game.RoundNo,
		Status:         game.Status,
		TurnSeat:       game.TurnSeat,
		TurnDeadlineAt: game.TurnDeadlineAt,
		WinnerSeat:     game.WinnerSeat,
		StartedAt:      game.StartedAt,
		EndedAt:        game.EndedAt,
		Secrets:        make([]secretView, 0, len(secrets)),
		Guesses:        make([]guessView, 0, len(guesses)),
		RematchVotes:   tally,
	}
	for _, secret := range secrets {
		item := secretView{Seat: secret.Seat, IsSet: secret.IsSet}
		if role == rules.RolePlayer && viewerSeat != nil && *viewerSeat == secret.Seat && secret.IsSet {
			item.Value = secret.Secret
		}
		view.Secrets = append(view.Secrets, item)
	}
	for _, guess := range guesses {
		view.Guesses = append(view.Guesses, guessView{
			TurnNo:    guess.TurnNo,
			Seat:      guess.GuesserSeat,
			Guess:     guess.Guess,
			Bulls:     guess.Bulls,
			Cows:      guess.Cows,
			CreatedAt: guess.CreatedAt,
		})
	}
	return view, nil
}

// chatTail returns the newest messages in chronological order.
func (s *Server) chatTail(ctx context.Context, roomID string, players []db.RoomPlayer) ([]chatMessage, error) {
	var messages []db.RoomMessage
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(max(s.cfg.ChatTailSize, 1)).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	slices.Reverse(messages)
	return toChatMessages(messages, players), nil
}

type turnCount struct {
	GameID string
	Turns  int
}

func (s *Server) roomStats(ctx context.Context, roomID string) (roomStats, error) {
	conn := s.db.WithContext(ctx)
	var finished []db.Game
	if err := conn.Where("room_id = ? AND status = ?", roomID, rules.GameFinished).Find(&finished).Error; err != nil {
		return roomStats{}, fmt.Errorf("load finished games: %w", err)
	}
	stats := roomStats{FinishedRounds: len(finished)}
	if len(finished) == 0 {
		return stats, nil
	}

	ids := make([]string, 0, len(finished))
	for _, game := range finished {
		ids = append(ids, game.ID)
		if game.WinnerSeat == nil {
			continue
		}
		switch *game.WinnerSeat {
		case rules.SeatOne:
			stats.Wins.Seat1++
		case rules.SeatTwo:
			stats.Wins.Seat2++
		}
	}

	var counts []turnCount
	if err := conn.Model(&db.Guess{}).
		Select("game_id, MAX(turn_no) AS turns").
		Where("game_id IN ?", ids).
		Group("game_id").
		Scan(&counts).Error; err != nil {
		return roomStats{}, fmt.Errorf("count turns: %w", err)
	}
	total := 0
	for _, count := range counts {
		total += count.Turns
	}
	stats.AvgTurns = math.Round(float64(total)/float64(len(finished))*10) / 10
	return stats, nil
}
