package model

import "time"

// TimerSnapshot is the persisted timer state. There is at most one, and it
// is overwritten as a whole on every transition and tick.
type TimerSnapshot struct {
	Running     bool  `json:"isRunning"`
	StartTime   int64 `json:"startTime"`   // epoch milliseconds
	ElapsedTime int64 `json:"elapsedTime"` // milliseconds
}

// StartedAt returns the start instant.
func (s TimerSnapshot) StartedAt() time.Time {
	return time.UnixMilli(s.StartTime)
}

// Elapsed returns the recorded elapsed time as a duration.
func (s TimerSnapshot) Elapsed() time.Duration {
	return time.Duration(s.ElapsedTime) * time.Millisecond
}
