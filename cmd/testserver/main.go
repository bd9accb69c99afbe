// testserver starts a scribed API server with a stub backend for local
// development and E2E testing. No container engine or cluster is needed;
// launched bots live only in memory and control actions always succeed.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/quikscribe/scribed/internal/api"
	"github.com/quikscribe/scribed/internal/auth"
	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/model"
	"github.com/quikscribe/scribed/internal/orchestrator"
	"github.com/quikscribe/scribed/internal/ports"
	"github.com/quikscribe/scribed/internal/registry"
	"github.com/quikscribe/scribed/internal/store"
)

// stubDriver keeps launched bots as in-memory entries that report running
// until stopped.
type stubDriver struct {
	mu     sync.Mutex
	states map[string]backend.State
}

func (d *stubDriver) Name() string { return "stub" }

func (d *stubDriver) Launch(_ context.Context, spec backend.LaunchSpec) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	handle := "stub-" + spec.BotID
	d.states[handle] = backend.StateRunning
	return handle, nil
}

func (d *stubDriver) Stop(_ context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, handle)
	return nil
}

func (d *stubDriver) Inspect(_ context.Context, handle string) (backend.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.states[handle]
	if !ok {
		return backend.StateNotFound, nil
	}
	return state, nil
}

// stubSender acknowledges every control action without any bot to talk to.
type stubSender struct {
	logger *slog.Logger
}

func (s *stubSender) Send(_ context.Context, bot model.Bot, action string) error {
	s.logger.Info("stub control action", "bot_id", bot.ID, "action", action)
	return nil
}

func main() {
	addr := ":8080"
	if v := os.Getenv("SCRIBED_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	driver := &stubDriver{states: map[string]backend.State{}}
	backends := backend.NewRegistry()
	backends.Register(driver)

	alloc := ports.NewAllocator(3000, 3100, nil)
	orch := orchestrator.New(driver, alloc, registry.New(), db, &stubSender{logger: logger}, logger)

	verifier := auth.NewStaticVerifier(map[string]string{
		"dev-token": "dev",
	})
	srv := api.NewServer(addr, orch, db, backends, verifier, logger)

	logger.Info("testserver: starting", "addr", addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
