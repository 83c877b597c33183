package rules

import "time"

// Deadline returns now+turnSeconds, or nil when the room is untimed.
func Deadline(turnSeconds int, now time.Time) *time.Time {
	if turnSeconds <= 0 {
		return nil
	}
	deadline := now.Add(time.Duration(turnSeconds) * time.Second)
	return &deadline
}

// Turn is the slice of game state the turn clock looks at.
type Turn struct {
	Status   string
	Seat     *int
	Deadline *time.Time
}

// Expiry describes a timeout transition decided by ExpireTurn.
type Expiry struct {
	ExpiredSeat     int
	ExpiredDeadline time.Time
	NextSeat        int
	NextDeadline    time.Time
}

// ExpireTurn decides whether the running turn has timed out at now and, if
// so, what the handoff looks like. It never mutates anything; the caller
// applies the result with a conditional update keyed on the expired seat
// and deadline.
func ExpireTurn(turn Turn, turnSeconds int, now time.Time) (Expiry, bool) {
	if turnSeconds <= 0 || turn.Status != GameActive || turn.Seat == nil || turn.Deadline == nil {
		return Expiry{}, false
	}
	if turn.Deadline.After(now) {
		return Expiry{}, false
	}
	return Expiry{
		ExpiredSeat:     *turn.Seat,
		ExpiredDeadline: *turn.Deadline,
		NextSeat:        FlipSeat(*turn.Seat),
		NextDeadline:    *Deadline(turnSeconds, now),
	}, true
}
