package api

import (
	"net/http"
	"testing"

	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/control"
	"github.com/quikscribe/scribed/internal/model"
)

func createTestMeeting(t *testing.T, env *testEnv, token string) model.Bot {
	t.Helper()

	resp := env.do(t, "POST", "/v1/meetings", token, createMeetingRequest{
		MeetingURL:  "https://meet.google.com/abc-defg-hij",
		DurationMin: 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var bot model.Bot
	decodeBody(t, resp, &bot)
	return bot
}

func TestCreateMeeting(t *testing.T) {
	env := newTestServer(t)

	bot := createTestMeeting(t, env, "tok-alice")

	if bot.ID == "" {
		t.Error("bot id not set")
	}
	if bot.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want alice", bot.OwnerID)
	}
	if bot.Status != model.StatusStarting {
		t.Errorf("Status = %q, want starting", bot.Status)
	}
	if bot.Port == nil || *bot.Port < 3000 || *bot.Port > 3004 {
		t.Errorf("Port = %v, want within [3000, 3004]", bot.Port)
	}
	if bot.Backend != "stub" {
		t.Errorf("Backend = %q, want stub", bot.Backend)
	}
}

func TestCreateMeetingValidation(t *testing.T) {
	env := newTestServer(t)

	tests := []struct {
		name string
		body createMeetingRequest
	}{
		{"missing url", createMeetingRequest{DurationMin: 30}},
		{"relative url", createMeetingRequest{MeetingURL: "meet.google.com/abc", DurationMin: 30}},
		{"negative duration", createMeetingRequest{MeetingURL: "https://meet.google.com/abc", DurationMin: -5}},
		{"excessive duration", createMeetingRequest{MeetingURL: "https://meet.google.com/abc", DurationMin: 10000}},
	}

	for _, tc := range tests {
		resp := env.do(t, "POST", "/v1/meetings", "tok-alice", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestCreateMeetingDefaultDuration(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, "POST", "/v1/meetings", "tok-alice", createMeetingRequest{
		MeetingURL: "https://meet.google.com/abc-defg-hij",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var bot model.Bot
	decodeBody(t, resp, &bot)
	if bot.DurationMin != defaultDurationMin {
		t.Errorf("DurationMin = %d, want %d", bot.DurationMin, defaultDurationMin)
	}
}

func TestCreateMeetingNoPortsAvailable(t *testing.T) {
	env := newTestServer(t)

	// The test allocator holds five ports.
	for i := 0; i < 5; i++ {
		createTestMeeting(t, env, "tok-alice")
	}

	resp := env.do(t, "POST", "/v1/meetings", "tok-alice", createMeetingRequest{
		MeetingURL:  "https://meet.google.com/abc-defg-hij",
		DurationMin: 30,
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestCreateMeetingBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"launch failed", backend.ErrLaunchFailed, http.StatusInternalServerError},
		{"backend unavailable", backend.ErrBackendUnavailable, http.StatusBadGateway},
	}

	for _, tc := range tests {
		env := newTestServer(t)
		env.driver.launchErr = tc.err

		resp := env.do(t, "POST", "/v1/meetings", "tok-alice", createMeetingRequest{
			MeetingURL:  "https://meet.google.com/abc-defg-hij",
			DurationMin: 30,
		})
		if resp.StatusCode != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}

func TestListMeetingsScopedToOwner(t *testing.T) {
	env := newTestServer(t)

	createTestMeeting(t, env, "tok-alice")
	createTestMeeting(t, env, "tok-alice")
	createTestMeeting(t, env, "tok-bob")

	resp := env.do(t, "GET", "/v1/meetings", "tok-alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body listMeetingsResponse
	decodeBody(t, resp, &body)
	if body.Total != 2 {
		t.Errorf("Total = %d, want 2", body.Total)
	}
	for _, bot := range body.Meetings {
		if bot.OwnerID != "alice" {
			t.Errorf("listed bot owned by %q", bot.OwnerID)
		}
	}
}

func TestListMeetingsReflectsDeadResources(t *testing.T) {
	env := newTestServer(t)

	bot := createTestMeeting(t, env, "tok-alice")
	env.driver.kill(bot.Handle)

	resp := env.do(t, "GET", "/v1/meetings", "tok-alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body listMeetingsResponse
	decodeBody(t, resp, &body)
	if len(body.Meetings) != 1 {
		t.Fatalf("listed %d meetings, want 1", len(body.Meetings))
	}
	if body.Meetings[0].Status != model.StatusFailed {
		t.Errorf("Status = %q, want failed", body.Meetings[0].Status)
	}
}

func TestPauseAndResumeMeeting(t *testing.T) {
	env := newTestServer(t)
	bot := createTestMeeting(t, env, "tok-alice")

	resp := env.do(t, "POST", "/v1/meetings/"+bot.ID+"/pause", "tok-alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", resp.StatusCode)
	}
	var paused model.Bot
	decodeBody(t, resp, &paused)
	if paused.Status != model.StatusPaused {
		t.Errorf("Status = %q, want paused", paused.Status)
	}

	resp = env.do(t, "POST", "/v1/meetings/"+bot.ID+"/resume", "tok-alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", resp.StatusCode)
	}
	var resumed model.Bot
	decodeBody(t, resp, &resumed)
	if resumed.Status != model.StatusRunning {
		t.Errorf("Status = %q, want running", resumed.Status)
	}
}

func TestPauseMeetingControlFailed(t *testing.T) {
	env := newTestServer(t)
	bot := createTestMeeting(t, env, "tok-alice")
	env.sender.err = control.ErrControlFailed

	resp := env.do(t, "POST", "/v1/meetings/"+bot.ID+"/pause", "tok-alice", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestPauseMeetingNotOwned(t *testing.T) {
	env := newTestServer(t)
	bot := createTestMeeting(t, env, "tok-alice")

	resp := env.do(t, "POST", "/v1/meetings/"+bot.ID+"/pause", "tok-bob", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStopMeeting(t *testing.T) {
	env := newTestServer(t)
	bot := createTestMeeting(t, env, "tok-alice")

	resp := env.do(t, "POST", "/v1/meetings/"+bot.ID+"/stop", "tok-alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}
	var stopped model.Bot
	decodeBody(t, resp, &stopped)
	if stopped.Status != model.StatusStopped {
		t.Errorf("Status = %q, want stopped", stopped.Status)
	}
	if stopped.Port != nil {
		t.Errorf("Port = %v after stop, want nil", stopped.Port)
	}

	// Stopping again conflicts with the terminal status.
	resp = env.do(t, "POST", "/v1/meetings/"+bot.ID+"/stop", "tok-alice", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second stop status = %d, want 409", resp.StatusCode)
	}
}

func TestStopMeetingNotFound(t *testing.T) {
	env := newTestServer(t)

	resp := env.do(t, "POST", "/v1/meetings/01ARZ3NDEKTSV4RRFFQ69G5FAV/stop", "tok-alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
