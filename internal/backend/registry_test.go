package backend_test

import (
	"context"
	"testing"

	"github.com/quikscribe/scribed/internal/backend"
)

// stubDriver is a minimal Driver for registry tests.
type stubDriver struct {
	name string
}

func (s *stubDriver) Name() string { return s.name }

func (s *stubDriver) Launch(_ context.Context, _ backend.LaunchSpec) (string, error) {
	return "", nil
}

func (s *stubDriver) Stop(_ context.Context, _ string) error { return nil }

func (s *stubDriver) Inspect(_ context.Context, _ string) (backend.State, error) {
	return backend.StateRunning, nil
}

func TestRegistryRegisterAndList(t *testing.T) {
	reg := backend.NewRegistry()

	reg.Register(&stubDriver{name: "docker"})
	reg.Register(&stubDriver{name: "kubernetes"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d drivers, want 2", len(list))
	}
	if list[0] != "docker" || list[1] != "kubernetes" {
		t.Errorf("List() = %v, want [docker kubernetes]", list)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(&stubDriver{name: "docker"})

	d, err := reg.Resolve("docker")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Name() != "docker" {
		t.Errorf("resolved driver name = %q, want %q", d.Name(), "docker")
	}
}

func TestRegistryResolveNotRegistered(t *testing.T) {
	reg := backend.NewRegistry()

	if _, err := reg.Resolve("kubernetes"); err == nil {
		t.Error("expected error for unregistered driver, got nil")
	}
}
