package rules

import (
	crand "crypto/rand"
	mrand "math/rand/v2"
)

// CodeAlphabet has 32 symbols and leaves out 0/O and 1/I.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func NewRoomCode() string {
	return randomCode(RoomCodeLength)
}

func NewSpectatorCode() string {
	return randomCode(SpectatorCodeLength)
}

func randomCode(length int) string {
	buf := make([]byte, length)
	if _, err := crand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(mrand.IntN(256))
		}
	}
	for i := range buf {
		buf[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}
	return string(buf)
}
