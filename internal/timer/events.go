package timer

import (
	"time"

	"github.com/workclock/workclock/internal/model"
)

// State is the authority's timer state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// EventType labels authority events.
type EventType string

const (
	// EventStateChange fires on start, pause and clear transitions.
	EventStateChange EventType = "state_change"

	// EventSettingsUpdated fires when new settings are announced.
	EventSettingsUpdated EventType = "settings_updated"
)

// Event is a broadcast notification from the authority to subscribers.
// Settings is only populated on EventSettingsUpdated.
type Event struct {
	Type     EventType
	State    State
	Snapshot model.TimerSnapshot
	Settings model.Settings
	At       time.Time
}
