package rules

const (
	RoomWaitingPlayer  = "waiting_player"
	RoomSettingSecrets = "setting_secrets"
	RoomActive         = "active"
	RoomFinished       = "finished"
)

const (
	GameWaitingSecrets = "waiting_secrets"
	GameActive         = "active"
	GameFinished       = "finished"
)

const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

const (
	EventPlayerJoined     = "player_joined"
	EventSecretSet        = "secret_set"
	EventTurnMade         = "turn_made"
	EventGameFinished     = "game_finished"
	EventRematchRequested = "rematch_requested"
	EventRematchStarted   = "rematch_started"
	EventTurnTimeout      = "turn_timeout"
	EventSettingsUpdated  = "settings_updated"
	EventChatMessage      = "chat_message"
	EventMusicUpdated     = "music_updated"
)

const (
	MusicNext   = "next"
	MusicToggle = "toggle"
)

const (
	SeatOne = 1
	SeatTwo = 2
)

// TurnSecondsOptions are the allowed per-room turn timers; 0 means untimed.
var TurnSecondsOptions = []int{0, 30, 45, 60}
