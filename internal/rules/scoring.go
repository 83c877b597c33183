package rules

import "strings"

const DigitCount = 4

type Score struct {
	Bulls int `json:"bulls"`
	Cows  int `json:"cows"`
}

// IsWin reports whether every digit is in place.
func (s Score) IsWin() bool {
	return s.Bulls == DigitCount
}

// BullsAndCows scores guess against secret. Both inputs are expected to
// hold distinct digits, so a cow can never be double counted.
func BullsAndCows(secret, guess string) Score {
	var score Score
	for i := 0; i < len(secret) && i < len(guess); i++ {
		if secret[i] == guess[i] {
			score.Bulls++
		} else if strings.IndexByte(secret, guess[i]) >= 0 {
			score.Cows++
		}
	}
	return score
}

// FlipSeat returns the opposite seat.
func FlipSeat(seat int) int {
	if seat == SeatOne {
		return SeatTwo
	}
	return SeatOne
}
