// Package docker implements the backend driver for a local Docker engine.
// Each bot runs as one detached, auto-removed container with its allocated
// port published on the host.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/quikscribe/scribed/internal/backend"
)

// DriverName is the name used when registering with the backend registry.
const DriverName = "docker"

// containerNamePrefix is prepended to the bot id to form the container name.
const containerNamePrefix = "meeting-bot-"

// engineAPI is the subset of the Docker client used by the driver,
// extracted so tests can substitute a fake engine.
type engineAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
}

// Config holds the Docker driver settings.
type Config struct {
	// Image is the bot container image reference.
	Image string
	// StopGrace is the grace period given to a container on stop before the
	// engine kills it.
	StopGrace time.Duration
}

// Driver implements backend.Driver against the Docker engine API.
type Driver struct {
	api    engineAPI
	cfg    Config
	logger *slog.Logger
}

var _ backend.Driver = (*Driver)(nil)

// NewDriver creates a Docker driver connected via the standard environment
// (DOCKER_HOST et al) with API version negotiation.
func NewDriver(cfg Config, logger *slog.Logger) (*Driver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return newDriver(cli, cfg, logger), nil
}

func newDriver(api engineAPI, cfg Config, logger *slog.Logger) *Driver {
	return &Driver{api: api, cfg: cfg, logger: logger}
}

// Name returns the driver's registry name.
func (d *Driver) Name() string { return DriverName }

// Launch creates and starts one bot container. The allocated port is both
// published host-side and exported to the bot via DYNAMIC_PORT so its control
// endpoint listens where the proxy expects it.
func (d *Driver) Launch(ctx context.Context, spec backend.LaunchSpec) (string, error) {
	portStr := strconv.Itoa(spec.Port)
	exposed := nat.Port(portStr + "/tcp")

	cfg := &container.Config{
		Image: d.cfg.Image,
		Env: []string{
			"UUID=" + spec.CorrelationID,
			"MEETING_ID=" + spec.MeetingURL,
			"USER_ID=" + spec.OwnerID,
			"DURATION=" + strconv.Itoa(spec.DurationMin),
			"DYNAMIC_PORT=" + portStr,
		},
		ExposedPorts: nat.PortSet{exposed: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		AutoRemove:  true,
		NetworkMode: "bridge",
		PortBindings: nat.PortMap{
			exposed: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: portStr}},
		},
	}

	name := containerNamePrefix + strings.ToLower(spec.BotID)
	created, err := d.api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", launchError("create container", err)
	}

	if err := d.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		// Best-effort removal of the never-started container so a failed
		// launch leaves nothing behind.
		rmCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if rmErr := d.api.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true}); rmErr != nil && !errdefs.IsNotFound(rmErr) {
			d.logger.Warn("remove failed container", "container_id", created.ID, "error", rmErr)
		}
		return "", launchError("start container", err)
	}

	d.logger.Info("container started",
		"bot_id", spec.BotID,
		"container_id", created.ID,
		"port", spec.Port,
	)
	return created.ID, nil
}

// Stop stops the container within the configured grace period and removes it.
// An already-gone container is success.
func (d *Driver) Stop(ctx context.Context, handle string) error {
	grace := int(d.cfg.StopGrace.Seconds())
	if err := d.api.ContainerStop(ctx, handle, container.StopOptions{Timeout: &grace}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		if client.IsErrConnectionFailed(err) {
			return fmt.Errorf("stop container: %w", backend.ErrBackendUnavailable)
		}
		return fmt.Errorf("stop container %s: %w", handle, err)
	}

	// AutoRemove usually reaps the container once stopped; force-remove
	// covers engines configured without it.
	if err := d.api.ContainerRemove(ctx, handle, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		d.logger.Debug("remove stopped container", "container_id", handle, "error", err)
	}
	return nil
}

// Inspect maps the engine-native container state onto the driver state enum.
func (d *Driver) Inspect(ctx context.Context, handle string) (backend.State, error) {
	info, err := d.api.ContainerInspect(ctx, handle)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return backend.StateNotFound, nil
		}
		if client.IsErrConnectionFailed(err) {
			return "", fmt.Errorf("inspect container: %w", backend.ErrBackendUnavailable)
		}
		return "", fmt.Errorf("inspect container %s: %w", handle, err)
	}

	if info.State == nil {
		return backend.StateExited, nil
	}
	switch info.State.Status {
	case "created":
		return backend.StateCreated, nil
	case "running", "paused", "restarting":
		return backend.StateRunning, nil
	default:
		// exited, removing, dead
		return backend.StateExited, nil
	}
}

// launchError maps engine failures onto the shared sentinel taxonomy.
func launchError(op string, err error) error {
	if client.IsErrConnectionFailed(err) {
		return fmt.Errorf("%s: %v: %w", op, err, backend.ErrBackendUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, backend.ErrLaunchFailed)
}
