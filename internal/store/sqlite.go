package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quikscribe/scribed/internal/model"

	_ "modernc.org/sqlite"
)

const createMeetingsTable = `
CREATE TABLE IF NOT EXISTS meetings (
    id             TEXT PRIMARY KEY,
    owner_id       TEXT NOT NULL,
    meeting_url    TEXT NOT NULL,
    duration_min   INTEGER NOT NULL,
    backend        TEXT NOT NULL,
    handle         TEXT,
    port           INTEGER,
    status         TEXT NOT NULL,
    correlation_id TEXT NOT NULL,
    created_at     DATETIME NOT NULL,
    finished_at    DATETIME
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createMeetingsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create meetings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMeeting inserts a new meeting record.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, m *Meeting) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (
			id, owner_id, meeting_url, duration_min, backend, handle,
			port, status, correlation_id, created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.MeetingURL, m.DurationMin, m.Backend, m.Handle,
		m.Port, m.Status, m.CorrelationID, m.CreatedAt, m.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID scoped to its owner.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id, ownerID string) (*Meeting, error) {
	m := &Meeting{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, meeting_url, duration_min, backend, handle,
			port, status, correlation_id, created_at, finished_at
		FROM meetings WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(
		&m.ID, &m.OwnerID, &m.MeetingURL, &m.DurationMin, &m.Backend, &m.Handle,
		&m.Port, &m.Status, &m.CorrelationID, &m.CreatedAt, &m.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListMeetingsByOwner returns all of an owner's meetings, newest first.
func (s *SQLiteStore) ListMeetingsByOwner(ctx context.Context, ownerID string) ([]*Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, meeting_url, duration_min, backend, handle,
			port, status, correlation_id, created_at, finished_at
		FROM meetings WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		m := &Meeting{}
		if err := rows.Scan(
			&m.ID, &m.OwnerID, &m.MeetingURL, &m.DurationMin, &m.Backend, &m.Handle,
			&m.Port, &m.Status, &m.CorrelationID, &m.CreatedAt, &m.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meetings: %w", err)
	}

	return meetings, nil
}

// UpdateMeetingStatus updates the status of a meeting. For terminal statuses
// it also sets finished_at.
func (s *SQLiteStore) UpdateMeetingStatus(ctx context.Context, id, status string) error {
	var result sql.Result
	var err error

	if model.Terminal(status) {
		result, err = s.db.ExecContext(ctx,
			"UPDATE meetings SET status = ?, finished_at = ? WHERE id = ?",
			status, time.Now().UTC(), id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			"UPDATE meetings SET status = ? WHERE id = ?",
			status, id,
		)
	}

	if err != nil {
		return fmt.Errorf("update meeting status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ClearRuntime nulls the backend handle and port of a meeting once its
// resource is gone, mirroring that nothing is running for it anymore.
func (s *SQLiteStore) ClearRuntime(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE meetings SET handle = NULL, port = NULL WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("clear meeting runtime: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMeetingStats computes aggregate statistics across all meetings.
func (s *SQLiteStore) GetMeetingStats(ctx context.Context) (*MeetingStats, error) {
	stats := &MeetingStats{
		CountByStatus:  make(map[string]int),
		CountByBackend: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, backend, COUNT(*) FROM meetings GROUP BY status, backend",
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate meetings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, backendName string
		var count int
		if err := rows.Scan(&status, &backendName, &count); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		stats.Total += count
		stats.CountByStatus[status] += count
		stats.CountByBackend[backendName] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}

	return stats, nil
}
