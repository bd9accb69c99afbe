package model

import "time"

// Bot status constants.
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusPaused   = "paused"
	StatusStopped  = "stopped"
	StatusFailed   = "failed"
)

// Backend name constants.
const (
	BackendDocker     = "docker"
	BackendKubernetes = "kubernetes"
)

// Control action constants for the bot's runtime endpoint.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Terminal statuses (stopped, failed) have no outgoing edges.
var validTransitions = map[string]map[string]bool{
	StatusStarting: {
		StatusRunning: true,
		StatusPaused:  true,
		StatusStopped: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusPaused:  true,
		StatusStopped: true,
		StatusFailed:  true,
	},
	StatusPaused: {
		StatusRunning: true,
		StatusStopped: true,
		StatusFailed:  true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
// A same-status transition is always allowed so that repeated observations of the
// current state are no-ops rather than errors.
func ValidTransition(from, to string) bool {
	if from == to {
		return true
	}
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether a status is terminal. Terminal statuses are sticky:
// once recorded they are never overwritten by a later non-terminal observation.
func Terminal(status string) bool {
	return status == StatusStopped || status == StatusFailed
}

// Bot represents one tracked meeting-bot worker instance.
type Bot struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Backend       string     `json:"backend"`
	Handle        string     `json:"handle,omitempty"`
	Port          *int       `json:"port,omitempty"`
	Status        string     `json:"status"`
	MeetingURL    string     `json:"meeting_url"`
	DurationMin   int        `json:"duration_min"`
	CorrelationID string     `json:"correlation_id"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
}
