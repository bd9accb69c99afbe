package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a meeting record is not found.
var ErrNotFound = errors.New("meeting not found")

// Meeting is the persisted record of one meeting-bot run. The in-memory
// registry stays authoritative for live orchestration state; this table is
// the durable history behind the listing and stats endpoints.
type Meeting struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	MeetingURL    string     `json:"meeting_url"`
	DurationMin   int        `json:"duration_min"`
	Backend       string     `json:"backend"`
	Handle        *string    `json:"handle,omitempty"`
	Port          *int       `json:"port,omitempty"`
	Status        string     `json:"status"`
	CorrelationID string     `json:"correlation_id"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// MeetingStats holds aggregate statistics over all persisted meetings.
type MeetingStats struct {
	Total          int            `json:"total"`
	CountByStatus  map[string]int `json:"count_by_status"`
	CountByBackend map[string]int `json:"count_by_backend"`
}

// Store defines the persistence operations for meeting records.
type Store interface {
	CreateMeeting(ctx context.Context, m *Meeting) error
	GetMeeting(ctx context.Context, id, ownerID string) (*Meeting, error)
	ListMeetingsByOwner(ctx context.Context, ownerID string) ([]*Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id, status string) error
	ClearRuntime(ctx context.Context, id string) error
	GetMeetingStats(ctx context.Context) (*MeetingStats, error)
	Close() error
}
