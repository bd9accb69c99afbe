package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

var uuidV4 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestNewCorrelationIDFormat(t *testing.T) {
	id := NewCorrelationID()
	if !uuidV4.MatchString(id) {
		t.Errorf("NewCorrelationID() = %q, does not match UUID format", id)
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusStarting, StatusRunning, true},
		{StatusStarting, StatusStopped, true},
		{StatusStarting, StatusFailed, true},
		{StatusRunning, StatusPaused, true},
		{StatusPaused, StatusRunning, true},
		{StatusRunning, StatusStopped, true},
		{StatusPaused, StatusFailed, true},
		{StatusRunning, StatusStarting, false},
		{StatusPaused, StatusStarting, false},
		{StatusStopped, StatusRunning, false},
		{StatusStopped, StatusStarting, false},
		{StatusFailed, StatusRunning, false},
		{StatusFailed, StatusStopped, false},
		{StatusRunning, StatusRunning, true},
		{StatusStopped, StatusStopped, true},
	}
	for _, tc := range tests {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusStarting, false},
		{StatusRunning, false},
		{StatusPaused, false},
		{StatusStopped, true},
		{StatusFailed, true},
	}
	for _, tc := range tests {
		if got := Terminal(tc.status); got != tc.want {
			t.Errorf("Terminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
