package kubernetes

import (
	"fmt"
	"strconv"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/quikscribe/scribed/internal/backend"
)

const (
	jobNamePrefix = "meeting-bot-"
	appLabel      = "quikscribe-bot"

	// Annotations carried on the pod and job for cross-system correlation.
	annotationMeetingID     = "meeting/id"
	annotationCorrelationID = "meeting/uuid"

	sidecarPort = 4444

	// sidecarStartupDelayS is the fixed delay the worker waits before its
	// entrypoint runs. The scheduler does not guarantee intra-pod container
	// start order, so the worker sleeps while the sidecar's own startup
	// probe gates readiness.
	sidecarStartupDelayS = 12

	// ttlAfterFinishedS lets the cluster reap finished jobs on its own.
	ttlAfterFinishedS = int32(1800)
)

// jobName derives the deterministic job name for a bot id. Kubernetes object
// names must be lowercase RFC 1123 subdomains; ULIDs are uppercase
// alphanumerics, so lowering suffices.
func jobName(botID string) string {
	return jobNamePrefix + strings.ToLower(botID)
}

// buildJob constructs the batch/v1 Job for one bot: a two-container pod
// running the worker and its browser-automation sidecar.
func buildJob(cfg Config, spec backend.LaunchSpec) *batchv1.Job {
	labels := map[string]string{"app": appLabel}
	annotations := map[string]string{
		annotationMeetingID:     spec.MeetingURL,
		annotationCorrelationID: spec.CorrelationID,
	}

	workerEnv := []corev1.EnvVar{
		{Name: "UUID", Value: spec.CorrelationID},
		{Name: "MEETING_ID", Value: spec.MeetingURL},
		{Name: "USER_ID", Value: spec.OwnerID},
		{Name: "DURATION", Value: strconv.Itoa(spec.DurationMin)},
		{Name: "DYNAMIC_PORT", Value: strconv.Itoa(spec.Port)},
		{Name: "DISPLAY", Value: ":99.0"},
		{Name: "SELENIUM_URL", Value: fmt.Sprintf("http://localhost:%d/wd/hub", sidecarPort)},
	}

	volumes := []corev1.Volume{
		{Name: "x11-socket", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
		{Name: "segments", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
	}

	worker := corev1.Container{
		Name:            "worker",
		Image:           cfg.BotImage,
		ImagePullPolicy: corev1.PullIfNotPresent,
		// The sleep holds the worker back until the sidecar is up; the
		// sidecar's startup probe is the authoritative readiness signal.
		Command: []string{"sh", "-lc", fmt.Sprintf("sleep %d; exec /app/entrypoint.sh", sidecarStartupDelayS)},
		Env:     workerEnv,
		Ports: []corev1.ContainerPort{
			{Name: "control", ContainerPort: int32(spec.Port)},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "x11-socket", MountPath: "/tmp/.X11-unix"},
			{Name: "segments", MountPath: "/app/segments"},
		},
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("250m"),
				corev1.ResourceMemory: resource.MustParse("512Mi"),
			},
			Limits: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("750m"),
				corev1.ResourceMemory: resource.MustParse("1.5Gi"),
			},
		},
	}

	sidecarProbe := func(initialDelay, failureThreshold int32) *corev1.Probe {
		return &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: "/status",
					Port: intstr.FromInt32(sidecarPort),
				},
			},
			InitialDelaySeconds: initialDelay,
			PeriodSeconds:       5,
			TimeoutSeconds:      3,
			FailureThreshold:    failureThreshold,
		}
	}

	sidecar := corev1.Container{
		Name:            "selenium",
		Image:           cfg.SidecarImage,
		ImagePullPolicy: corev1.PullIfNotPresent,
		Env: []corev1.EnvVar{
			{Name: "SE_OPTS", Value: "--session-timeout 300"},
			{Name: "DISPLAY", Value: ":99.0"},
		},
		Ports: []corev1.ContainerPort{
			{Name: "selenium", ContainerPort: sidecarPort},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: "x11-socket", MountPath: "/tmp/.X11-unix"},
		},
		// Startup allows up to ~2 minutes for the browser stack to come up.
		StartupProbe:   sidecarProbe(3, 24),
		ReadinessProbe: sidecarProbe(5, 6),
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("500m"),
				corev1.ResourceMemory: resource.MustParse("512Mi"),
			},
			Limits: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("1500m"),
				corev1.ResourceMemory: resource.MustParse("2Gi"),
			},
		},
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        jobName(spec.BotID),
			Namespace:   cfg.Namespace,
			Labels:      labels,
			Annotations: annotations,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            ptr.To(int32(0)),
			TTLSecondsAfterFinished: ptr.To(ttlAfterFinishedS),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      labels,
					Annotations: annotations,
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers:    []corev1.Container{worker, sidecar},
					Volumes:       volumes,
				},
			},
		},
	}
}
