// Package kubernetes implements the backend driver for a cluster scheduler.
// Each bot runs as one batch/v1 Job whose pod holds the worker container and
// a browser-automation sidecar.
package kubernetes

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/quikscribe/scribed/internal/backend"
)

// DriverName is the name used when registering with the backend registry.
const DriverName = "kubernetes"

// Config holds the Kubernetes driver settings.
type Config struct {
	// Namespace receives the bot jobs.
	Namespace string
	// BotImage is the worker container image reference.
	BotImage string
	// SidecarImage is the browser-automation sidecar image reference.
	SidecarImage string
}

// Driver implements backend.Driver against the cluster batch-job API.
type Driver struct {
	client kubernetes.Interface
	cfg    Config
	logger *slog.Logger
}

var _ backend.Driver = (*Driver)(nil)

// NewDriver creates a Kubernetes driver, preferring in-cluster configuration
// and falling back to the local kubeconfig.
func NewDriver(cfg Config, logger *slog.Logger) (*Driver, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return nil, fmt.Errorf("load kubernetes config: %w", err)
		}
	}

	cs, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	return newDriver(cs, cfg, logger), nil
}

func newDriver(client kubernetes.Interface, cfg Config, logger *slog.Logger) *Driver {
	return &Driver{client: client, cfg: cfg, logger: logger}
}

// Name returns the driver's registry name.
func (d *Driver) Name() string { return DriverName }

// Launch submits one bot job and returns the job name as the handle.
func (d *Driver) Launch(ctx context.Context, spec backend.LaunchSpec) (string, error) {
	job := buildJob(d.cfg, spec)

	created, err := d.client.BatchV1().Jobs(d.cfg.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) || apierrors.IsInvalid(err) || apierrors.IsBadRequest(err) || apierrors.IsForbidden(err) {
			return "", fmt.Errorf("create job: %v: %w", err, backend.ErrLaunchFailed)
		}
		return "", fmt.Errorf("create job: %v: %w", err, backend.ErrBackendUnavailable)
	}

	d.logger.Info("job created",
		"bot_id", spec.BotID,
		"job", created.Name,
		"namespace", d.cfg.Namespace,
		"port", spec.Port,
	)
	return created.Name, nil
}

// Stop deletes the job with background propagation so its pods are reaped.
// A job already absent from the scheduler is success.
func (d *Driver) Stop(ctx context.Context, handle string) error {
	propagation := metav1.DeletePropagationBackground
	err := d.client.BatchV1().Jobs(d.cfg.Namespace).Delete(ctx, handle, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete job %s: %w", handle, err)
	}
	return nil
}

// Inspect maps the job status onto the driver state enum. A job absent from
// the scheduler (finished jobs are reaped by their TTL) reports not-found
// rather than an error.
func (d *Driver) Inspect(ctx context.Context, handle string) (backend.State, error) {
	job, err := d.client.BatchV1().Jobs(d.cfg.Namespace).Get(ctx, handle, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return backend.StateNotFound, nil
		}
		return "", fmt.Errorf("get job %s: %v: %w", handle, err, backend.ErrBackendUnavailable)
	}

	switch {
	case job.Status.Active > 0:
		return backend.StateRunning, nil
	case job.Status.Succeeded > 0 || job.Status.Failed > 0:
		return backend.StateExited, nil
	default:
		return backend.StateCreated, nil
	}
}
