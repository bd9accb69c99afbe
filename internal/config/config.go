// Package config loads application configuration from environment variables
// and builds the shared structured logger.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr        = ":8080"
	defaultDBPath            = "scribed.db"
	defaultBackend           = "docker"
	defaultPortRangeFirst    = 3000
	defaultPortRangeLast     = 3100
	defaultBotImage          = "quikscribe/meeting-bot:latest"
	defaultSidecarImage      = "selenium/standalone-chrome:123.0"
	defaultNamespace         = "default"
	defaultControlHost       = "localhost"
	defaultControlTimeout    = 5 * time.Second
	defaultStopGrace         = 10 * time.Second
	defaultReconcileInterval = 30 * time.Second

	envListenAddr        = "SCRIBED_LISTEN_ADDR"
	envDBPath            = "SCRIBED_DB_PATH"
	envLogLevel          = "SCRIBED_LOG_LEVEL"
	envBackend           = "SCRIBED_BACKEND"
	envPortRangeFirst    = "SCRIBED_PORT_RANGE_FIRST"
	envPortRangeLast     = "SCRIBED_PORT_RANGE_LAST"
	envBotImage          = "SCRIBED_BOT_IMAGE"
	envSidecarImage      = "SCRIBED_SIDECAR_IMAGE"
	envNamespace         = "SCRIBED_NAMESPACE"
	envControlHost       = "SCRIBED_CONTROL_HOST"
	envControlTimeout    = "SCRIBED_CONTROL_TIMEOUT"
	envStopGrace         = "SCRIBED_STOP_GRACE"
	envReconcileInterval = "SCRIBED_RECONCILE_INTERVAL"
	envAuthTokens        = "SCRIBED_AUTH_TOKENS"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// Backend selects the execution backend, "docker" or "kubernetes".
	Backend string

	// PortRangeFirst and PortRangeLast bound the inclusive host port range
	// handed out to bot instances.
	PortRangeFirst int
	PortRangeLast  int

	// BotImage is the worker container image for both backends.
	BotImage string
	// SidecarImage is the browser-automation sidecar image (kubernetes only).
	SidecarImage string
	// Namespace receives bot jobs (kubernetes only).
	Namespace string

	// ControlHost is where bot control endpoints are reachable, combined with
	// each bot's allocated port.
	ControlHost    string
	ControlTimeout time.Duration

	// StopGrace bounds how long a bot gets to shut down before being killed.
	StopGrace time.Duration

	// ReconcileInterval is the period of the background reconcile loop.
	// Zero disables the loop.
	ReconcileInterval time.Duration

	// AuthTokens maps bearer tokens to owner ids.
	AuthTokens map[string]string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        defaultListenAddr,
		DBPath:            defaultDBPath,
		LogLevel:          slog.LevelInfo,
		Backend:           defaultBackend,
		PortRangeFirst:    defaultPortRangeFirst,
		PortRangeLast:     defaultPortRangeLast,
		BotImage:          defaultBotImage,
		SidecarImage:      defaultSidecarImage,
		Namespace:         defaultNamespace,
		ControlHost:       defaultControlHost,
		ControlTimeout:    defaultControlTimeout,
		StopGrace:         defaultStopGrace,
		ReconcileInterval: defaultReconcileInterval,
		AuthTokens:        map[string]string{},
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envBackend); v != "" {
		b := strings.ToLower(v)
		if b != "docker" && b != "kubernetes" {
			return Config{}, fmt.Errorf("%s: unknown backend %q", envBackend, v)
		}
		cfg.Backend = b
	}
	if v := os.Getenv(envPortRangeFirst); v != "" {
		n, err := parsePort(envPortRangeFirst, v)
		if err != nil {
			return Config{}, err
		}
		cfg.PortRangeFirst = n
	}
	if v := os.Getenv(envPortRangeLast); v != "" {
		n, err := parsePort(envPortRangeLast, v)
		if err != nil {
			return Config{}, err
		}
		cfg.PortRangeLast = n
	}
	if cfg.PortRangeFirst > cfg.PortRangeLast {
		return Config{}, fmt.Errorf("port range [%d, %d] is empty", cfg.PortRangeFirst, cfg.PortRangeLast)
	}
	if v := os.Getenv(envBotImage); v != "" {
		cfg.BotImage = v
	}
	if v := os.Getenv(envSidecarImage); v != "" {
		cfg.SidecarImage = v
	}
	if v := os.Getenv(envNamespace); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv(envControlHost); v != "" {
		cfg.ControlHost = v
	}
	if v := os.Getenv(envControlTimeout); v != "" {
		d, err := parseDuration(envControlTimeout, v)
		if err != nil {
			return Config{}, err
		}
		cfg.ControlTimeout = d
	}
	if v := os.Getenv(envStopGrace); v != "" {
		d, err := parseDuration(envStopGrace, v)
		if err != nil {
			return Config{}, err
		}
		cfg.StopGrace = d
	}
	if v, ok := os.LookupEnv(envReconcileInterval); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("%s: invalid interval %q", envReconcileInterval, v)
		}
		cfg.ReconcileInterval = d
	}
	if v := os.Getenv(envAuthTokens); v != "" {
		tokens, err := parseAuthTokens(v)
		if err != nil {
			return Config{}, err
		}
		cfg.AuthTokens = tokens
	}

	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parsePort(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%s: invalid port %q", name, s)
	}
	return n, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", name, s)
	}
	return d, nil
}

// parseAuthTokens parses "token:owner" pairs separated by commas.
func parseAuthTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, owner, ok := strings.Cut(pair, ":")
		if !ok || token == "" || owner == "" {
			return nil, fmt.Errorf("%s: malformed pair %q, want token:owner", envAuthTokens, pair)
		}
		tokens[token] = owner
	}
	return tokens, nil
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
