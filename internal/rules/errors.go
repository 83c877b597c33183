package rules

import "net/http"

// Error is the single domain error type surfaced to callers. Status is the
// HTTP status class, Code a stable machine-readable identifier.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

var (
	ErrUnauthorized        = newError(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	ErrRateLimited         = newError(http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down")
	ErrInvalidRequest      = newError(http.StatusBadRequest, "INVALID_REQUEST", "invalid request")
	ErrInvalidDisplayName  = newError(http.StatusBadRequest, "INVALID_DISPLAY_NAME", "display name must be 1-24 characters")
	ErrInvalidRoomCode     = newError(http.StatusBadRequest, "INVALID_ROOM_CODE", "room code must be 6 characters")
	ErrInvalidSecret       = newError(http.StatusBadRequest, "INVALID_SECRET", "secret must be 4 different digits")
	ErrInvalidGuess        = newError(http.StatusBadRequest, "INVALID_GUESS", "guess must be 4 different digits")
	ErrInvalidTurnSeconds  = newError(http.StatusBadRequest, "INVALID_TURN_SECONDS", "turn timer must be one of 0, 30, 45 or 60 seconds")
	ErrInvalidChatMessage  = newError(http.StatusBadRequest, "INVALID_CHAT_MESSAGE", "message must be 1-300 characters")
	ErrInvalidMusicAction  = newError(http.StatusBadRequest, "INVALID_MUSIC_ACTION", "music action must be next or toggle")
	ErrInvalidVote         = newError(http.StatusBadRequest, "INVALID_VOTE", "rematch vote must be true")
	ErrRoomNotFound        = newError(http.StatusNotFound, "ROOM_NOT_FOUND", "room not found")
	ErrGameNotFound        = newError(http.StatusNotFound, "GAME_NOT_FOUND", "game not found")
	ErrRoomExpired         = newError(http.StatusGone, "ROOM_EXPIRED", "room has expired")
	ErrForbidden           = newError(http.StatusForbidden, "FORBIDDEN", "you are not allowed to do this")
	ErrInvalidSpectatorKey = newError(http.StatusForbidden, "INVALID_SPECTATOR_KEY", "invalid spectator link")
	ErrRoomFull            = newError(http.StatusConflict, "ROOM_FULL", "room is full")
	ErrGameAlreadyStarted  = newError(http.StatusConflict, "GAME_ALREADY_STARTED", "secrets are already locked in")
	ErrGameAlreadyActive   = newError(http.StatusConflict, "GAME_ALREADY_ACTIVE", "settings cannot change during an active game")
	ErrGameNotActive       = newError(http.StatusConflict, "GAME_NOT_ACTIVE", "game is not active")
	ErrGameNotFinished     = newError(http.StatusConflict, "GAME_NOT_FINISHED", "rematch is only available after the game ends")
	ErrNotYourTurn         = newError(http.StatusConflict, "NOT_YOUR_TURN", "it is your opponent's turn")
	ErrTurnExpired         = newError(http.StatusConflict, "TURN_EXPIRED", "your time ran out, the turn passed to your opponent")
	ErrSecretNotReady      = newError(http.StatusConflict, "SECRET_NOT_READY", "opponent has not set a secret yet")
	ErrTurnProcessed       = newError(http.StatusConflict, "TURN_ALREADY_PROCESSED", "this turn was already processed")
	ErrGameStateConflict   = newError(http.StatusConflict, "GAME_STATE_CONFLICT", "game changed, refresh and try again")
	ErrMusicStateConflict  = newError(http.StatusConflict, "MUSIC_STATE_CONFLICT", "music changed, refresh and try again")
	ErrRoomCreateFailed    = newError(http.StatusInternalServerError, "ROOM_CREATE_FAILED", "could not create a room, try again")
	ErrInternal            = newError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
)
