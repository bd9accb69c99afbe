package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/quikscribe/scribed/internal/api"
	"github.com/quikscribe/scribed/internal/auth"
	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/backend/docker"
	"github.com/quikscribe/scribed/internal/backend/kubernetes"
	"github.com/quikscribe/scribed/internal/config"
	"github.com/quikscribe/scribed/internal/control"
	"github.com/quikscribe/scribed/internal/orchestrator"
	"github.com/quikscribe/scribed/internal/ports"
	"github.com/quikscribe/scribed/internal/registry"
	"github.com/quikscribe/scribed/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("scribed: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend", cfg.Backend,
		"port_range_first", cfg.PortRangeFirst,
		"port_range_last", cfg.PortRangeLast,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	driver, err := buildDriver(cfg, logger)
	if err != nil {
		log.Fatalf("failed to construct %s backend: %v", cfg.Backend, err)
	}
	backends := backend.NewRegistry()
	backends.Register(driver)

	alloc := ports.NewAllocator(cfg.PortRangeFirst, cfg.PortRangeLast, ports.ListenProbe)
	proxy := control.NewProxy(cfg.ControlHost, cfg.ControlTimeout, logger)
	orch := orchestrator.New(driver, alloc, registry.New(), db, proxy, logger)

	ctx, cancel := context.WithCancel(context.Background())
	orch.Run(ctx, cfg.ReconcileInterval)

	verifier := auth.NewStaticVerifier(cfg.AuthTokens)
	srv := api.NewServer(cfg.ListenAddr, orch, db, backends, verifier, logger)

	err = srv.Run()
	cancel()
	orch.Wait()
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildDriver constructs exactly the configured backend. The other variant is
// never probed or instantiated.
func buildDriver(cfg config.Config, logger *slog.Logger) (backend.Driver, error) {
	switch cfg.Backend {
	case "kubernetes":
		return kubernetes.NewDriver(kubernetes.Config{
			Namespace:    cfg.Namespace,
			BotImage:     cfg.BotImage,
			SidecarImage: cfg.SidecarImage,
		}, logger)
	default:
		return docker.NewDriver(docker.Config{
			Image:     cfg.BotImage,
			StopGrace: cfg.StopGrace,
		}, logger)
	}
}
