package rules

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	RoomCodeLength       = 6
	SpectatorCodeLength  = 8
	MaxDisplayNameLength = 24
	MaxChatMessageLength = 300
)

// NormalizeRoomCode trims and upper-cases a room code. Lookups accept any
// 6 ASCII letters or digits; generated codes only use CodeAlphabet.
func NormalizeRoomCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != RoomCodeLength {
		return "", ErrInvalidRoomCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			continue
		}
		return "", ErrInvalidRoomCode
	}
	return code, nil
}

func NormalizeSpectatorKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func ValidateSecret(raw string) (string, error) {
	value, ok := fourDistinctDigits(raw)
	if !ok {
		return "", ErrInvalidSecret
	}
	return value, nil
}

func ValidateGuess(raw string) (string, error) {
	value, ok := fourDistinctDigits(raw)
	if !ok {
		return "", ErrInvalidGuess
	}
	return value, nil
}

// IsFourDistinctDigits reports whether raw, once trimmed, is exactly four
// ASCII digits with no repeats.
func IsFourDistinctDigits(raw string) bool {
	_, ok := fourDistinctDigits(raw)
	return ok
}

func fourDistinctDigits(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if len(value) != DigitCount {
		return "", false
	}
	var seen [10]bool
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return "", false
		}
		if seen[c-'0'] {
			return "", false
		}
		seen[c-'0'] = true
	}
	return value, true
}

func ValidateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

func ValidateChatMessage(raw string) (string, error) {
	message := strings.TrimSpace(raw)
	if message == "" || utf8.RuneCountInString(message) > MaxChatMessageLength {
		return "", ErrInvalidChatMessage
	}
	return message, nil
}

func ValidateTurnSeconds(value int) (int, error) {
	if !slices.Contains(TurnSecondsOptions, value) {
		return 0, ErrInvalidTurnSeconds
	}
	return value, nil
}

func ValidateMusicAction(raw string) (string, error) {
	action := strings.ToLower(strings.TrimSpace(raw))
	if action != MusicNext && action != MusicToggle {
		return "", ErrInvalidMusicAction
	}
	return action, nil
}

// NormalizeTrackIndex wraps index into [0, count).
func NormalizeTrackIndex(index, count int) int {
	if count <= 0 {
		return 0
	}
	index %= count
	if index < 0 {
		index += count
	}
	return index
}
