package backend

import (
	"context"
	"errors"
)

// Sentinel errors shared by all drivers.
var (
	// ErrLaunchFailed is returned when the backend accepted the request but
	// could not start the bot (missing image, rejected spec).
	ErrLaunchFailed = errors.New("backend launch failed")

	// ErrBackendUnavailable is returned when the backend API itself cannot
	// be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// State is the backend-native lifecycle state of a bot's resource.
type State string

const (
	// StateCreated means the resource exists but has not started running yet.
	StateCreated State = "created"
	// StateRunning means the resource is live.
	StateRunning State = "running"
	// StateExited means the resource ran and has since terminated, or is
	// confirmed gone on backends that reap finished resources.
	StateExited State = "exited"
	// StateNotFound means the backend has no record of the resource.
	StateNotFound State = "notfound"
)

// LaunchSpec describes one bot instance to be started by a driver. The port
// is allocated by the orchestrator before launch and baked into the bot's
// environment so the control endpoint is reachable at a known address.
type LaunchSpec struct {
	BotID         string
	OwnerID       string
	MeetingURL    string
	DurationMin   int
	Port          int
	CorrelationID string
}

// Driver is the interface every execution backend implements. Exactly one
// driver is selected by configuration at startup; nothing probes for an
// alternative at call time.
type Driver interface {
	// Name returns the driver's registry name.
	Name() string

	// Launch starts one bot described by spec and returns a backend-native handle
	// (container id or job name) used for later Inspect/Stop calls.
	Launch(ctx context.Context, spec LaunchSpec) (string, error)

	// Stop terminates the resource within a bounded grace period. A resource
	// that is already gone is treated as success, never an error.
	Stop(ctx context.Context, handle string) error

	// Inspect reports the backend-native state of the resource.
	Inspect(ctx context.Context, handle string) (State, error)
}
