package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quikscribe/scribed/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestMeeting(owner string) *Meeting {
	handle := "cid-abc"
	port := 3042
	return &Meeting{
		ID:            model.NewID(),
		OwnerID:       owner,
		MeetingURL:    "https://meet.google.com/abc-defg-hij",
		DurationMin:   30,
		Backend:       model.BackendDocker,
		Handle:        &handle,
		Port:          &port,
		Status:        model.StatusStarting,
		CorrelationID: model.NewCorrelationID(),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetMeeting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := makeTestMeeting("owner-1")

	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	got, err := s.GetMeeting(ctx, m.ID, "owner-1")
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}

	if got.ID != m.ID {
		t.Errorf("ID = %q, want %q", got.ID, m.ID)
	}
	if got.OwnerID != m.OwnerID {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, m.OwnerID)
	}
	if got.Status != model.StatusStarting {
		t.Errorf("Status = %q, want starting", got.Status)
	}
	if got.Handle == nil || *got.Handle != "cid-abc" {
		t.Errorf("Handle = %v, want cid-abc", got.Handle)
	}
	if got.Port == nil || *got.Port != 3042 {
		t.Errorf("Port = %v, want 3042", got.Port)
	}
}

func TestGetMeetingScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := makeTestMeeting("owner-1")

	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	if _, err := s.GetMeeting(ctx, m.ID, "owner-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMeeting as stranger err = %v, want ErrNotFound", err)
	}
}

func TestListMeetingsByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		m := makeTestMeeting("owner-1")
		m.CreatedAt = m.CreatedAt.Add(time.Duration(i) * time.Minute)
		if err := s.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting: %v", err)
		}
	}
	if err := s.CreateMeeting(ctx, makeTestMeeting("owner-2")); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	got, err := s.ListMeetingsByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListMeetingsByOwner: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("listed %d meetings, want 3", len(got))
	}
	// Newest first.
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("meetings not ordered newest first: %v before %v", got[i-1].CreatedAt, got[i].CreatedAt)
		}
	}
}

func TestUpdateMeetingStatusTerminalSetsFinishedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := makeTestMeeting("owner-1")

	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	if err := s.UpdateMeetingStatus(ctx, m.ID, model.StatusRunning); err != nil {
		t.Fatalf("UpdateMeetingStatus(running): %v", err)
	}
	got, _ := s.GetMeeting(ctx, m.ID, "owner-1")
	if got.FinishedAt != nil {
		t.Error("FinishedAt set on non-terminal status")
	}

	if err := s.UpdateMeetingStatus(ctx, m.ID, model.StatusStopped); err != nil {
		t.Fatalf("UpdateMeetingStatus(stopped): %v", err)
	}
	got, _ = s.GetMeeting(ctx, m.ID, "owner-1")
	if got.Status != model.StatusStopped {
		t.Errorf("Status = %q, want stopped", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set on terminal status")
	}
}

func TestUpdateMeetingStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateMeetingStatus(context.Background(), "nonexistent", model.StatusRunning)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClearRuntime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := makeTestMeeting("owner-1")

	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	if err := s.ClearRuntime(ctx, m.ID); err != nil {
		t.Fatalf("ClearRuntime: %v", err)
	}

	got, _ := s.GetMeeting(ctx, m.ID, "owner-1")
	if got.Handle != nil || got.Port != nil {
		t.Errorf("Handle = %v, Port = %v after ClearRuntime, want both nil", got.Handle, got.Port)
	}
}

func TestGetMeetingStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	running := makeTestMeeting("owner-1")
	running.Status = model.StatusRunning
	stopped := makeTestMeeting("owner-1")
	stopped.Status = model.StatusStopped
	k8s := makeTestMeeting("owner-2")
	k8s.Backend = model.BackendKubernetes
	k8s.Status = model.StatusRunning

	for _, m := range []*Meeting{running, stopped, k8s} {
		if err := s.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting: %v", err)
		}
	}

	stats, err := s.GetMeetingStats(ctx)
	if err != nil {
		t.Fatalf("GetMeetingStats: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.CountByStatus[model.StatusRunning] != 2 {
		t.Errorf("running count = %d, want 2", stats.CountByStatus[model.StatusRunning])
	}
	if stats.CountByBackend[model.BackendDocker] != 2 {
		t.Errorf("docker count = %d, want 2", stats.CountByBackend[model.BackendDocker])
	}
	if stats.CountByBackend[model.BackendKubernetes] != 1 {
		t.Errorf("kubernetes count = %d, want 1", stats.CountByBackend[model.BackendKubernetes])
	}
}

func TestGetMeetingStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetMeetingStats(context.Background())
	if err != nil {
		t.Fatalf("GetMeetingStats: %v", err)
	}
	if stats.Total != 0 || len(stats.CountByStatus) != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}
