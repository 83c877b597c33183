package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBullsAndCows(t *testing.T) {
	cases := []struct {
		secret string
		guess  string
		want   Score
	}{
		{"4271", "1234", Score{Bulls: 1, Cows: 2}},
		{"9150", "9150", Score{Bulls: 4, Cows: 0}},
		{"1234", "5678", Score{Bulls: 0, Cows: 0}},
		{"1234", "4321", Score{Bulls: 0, Cows: 4}},
		{"5823", "5832", Score{Bulls: 2, Cows: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.secret+"/"+tc.guess, func(t *testing.T) {
			assert.Equal(t, tc.want, BullsAndCows(tc.secret, tc.guess))
		})
	}
}

func TestBullsAndCowsBoundsOverAllDistinctPairs(t *testing.T) {
	codes := distinctCodes()
	secrets := []string{"0123", "9876", "4271", "5039"}
	for _, secret := range secrets {
		for _, guess := range codes {
			score := BullsAndCows(secret, guess)
			if score.Bulls+score.Cows > DigitCount {
				t.Fatalf("secret=%s guess=%s: bulls+cows=%d", secret, guess, score.Bulls+score.Cows)
			}
			if score.IsWin() != (secret == guess) {
				t.Fatalf("secret=%s guess=%s: win=%v", secret, guess, score.IsWin())
			}
		}
	}
}

func TestFlipSeat(t *testing.T) {
	assert.Equal(t, SeatTwo, FlipSeat(SeatOne))
	assert.Equal(t, SeatOne, FlipSeat(SeatTwo))
	for _, seat := range []int{SeatOne, SeatTwo} {
		assert.Equal(t, seat, FlipSeat(FlipSeat(seat)))
	}
}

func distinctCodes() []string {
	var codes []string
	for n := 0; n < 10000; n++ {
		code := fmt.Sprintf("%04d", n)
		if IsFourDistinctDigits(code) {
			codes = append(codes, code)
		}
	}
	return codes
}
