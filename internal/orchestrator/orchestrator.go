// Package orchestrator coordinates the full bot lifecycle: port reservation,
// backend launch, registry tracking, runtime control, reconciliation against
// backend ground truth, and pruning of dead entries.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/model"
	"github.com/quikscribe/scribed/internal/ports"
	"github.com/quikscribe/scribed/internal/registry"
	"github.com/quikscribe/scribed/internal/store"
)

// ControlSender forwards a runtime action to a bot's control endpoint.
// Satisfied by control.Proxy.
type ControlSender interface {
	Send(ctx context.Context, bot model.Bot, action string) error
}

// Orchestrator owns the live bot table and drives one configured backend.
// Constructed once at startup and passed into every request handler; there is
// no lazily-initialized global instance.
type Orchestrator struct {
	driver backend.Driver
	ports  *ports.Allocator
	reg    *registry.Registry
	store  store.Store
	proxy  ControlSender
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates an orchestrator over the given collaborators.
func New(driver backend.Driver, alloc *ports.Allocator, reg *registry.Registry, st store.Store, proxy ControlSender, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		driver: driver,
		ports:  alloc,
		reg:    reg,
		store:  st,
		proxy:  proxy,
		logger: logger,
	}
}

// LaunchRequest describes one bot to start on behalf of an owner.
type LaunchRequest struct {
	OwnerID     string
	MeetingURL  string
	DurationMin int
}

// Launch reserves a port, starts a bot on the backend, and registers it in
// status starting. The port reservation is held only in memory while the slow
// backend call runs; on any failure it is released before the error surfaces,
// so a failed launch never leaves a claimed port or a partial registry entry.
func (o *Orchestrator) Launch(ctx context.Context, req LaunchRequest) (model.Bot, error) {
	port, err := o.ports.Allocate()
	if err != nil {
		launchesTotal.WithLabelValues(o.driver.Name(), "no_ports").Inc()
		return model.Bot{}, err
	}

	bot := model.Bot{
		ID:            model.NewID(),
		OwnerID:       req.OwnerID,
		Backend:       o.driver.Name(),
		Port:          &port,
		Status:        model.StatusStarting,
		MeetingURL:    req.MeetingURL,
		DurationMin:   req.DurationMin,
		CorrelationID: model.NewCorrelationID(),
		CreatedAt:     time.Now().UTC(),
	}

	handle, err := o.driver.Launch(ctx, backend.LaunchSpec{
		BotID:         bot.ID,
		OwnerID:       bot.OwnerID,
		MeetingURL:    bot.MeetingURL,
		DurationMin:   bot.DurationMin,
		Port:          port,
		CorrelationID: bot.CorrelationID,
	})
	if err != nil {
		o.ports.Release(port)
		launchesTotal.WithLabelValues(o.driver.Name(), "error").Inc()
		return model.Bot{}, err
	}
	bot.Handle = handle

	if err := o.reg.Insert(bot); err != nil {
		// Unreachable with ULID ids in practice; roll back fully anyway.
		if stopErr := o.driver.Stop(ctx, handle); stopErr != nil {
			o.logger.Error("rollback stop failed", "bot_id", bot.ID, "error", stopErr)
		}
		o.ports.Release(port)
		launchesTotal.WithLabelValues(o.driver.Name(), "error").Inc()
		return model.Bot{}, fmt.Errorf("register bot: %w", err)
	}

	o.persistCreate(ctx, bot)
	launchesTotal.WithLabelValues(o.driver.Name(), "success").Inc()
	o.logger.Info("bot launched",
		"bot_id", bot.ID,
		"owner_id", bot.OwnerID,
		"backend", bot.Backend,
		"handle", handle,
		"port", port,
		"correlation_id", bot.CorrelationID,
	)
	return bot, nil
}

// Control forwards pause or resume to the bot's control endpoint and, on
// success, records the action's target status. A failed call leaves the
// status untouched; retrying is the caller's decision.
func (o *Orchestrator) Control(ctx context.Context, id, ownerID, action string) (model.Bot, error) {
	bot, err := o.reg.GetOwned(id, ownerID)
	if err != nil {
		return model.Bot{}, err
	}
	if model.Terminal(bot.Status) {
		return model.Bot{}, registry.ErrAlreadyTerminal
	}

	if err := o.proxy.Send(ctx, bot, action); err != nil {
		controlActionsTotal.WithLabelValues(action, "error").Inc()
		return model.Bot{}, err
	}

	target := model.StatusRunning
	if action == model.ActionPause {
		target = model.StatusPaused
	}
	if err := o.reg.UpdateStatus(id, target); err != nil {
		// A reconcile pass can race us into a terminal status after the
		// control call went out. The terminal observation wins.
		controlActionsTotal.WithLabelValues(action, "error").Inc()
		return model.Bot{}, err
	}
	o.persistStatus(ctx, id, target)
	controlActionsTotal.WithLabelValues(action, "success").Inc()

	o.logger.Info("control action applied", "bot_id", id, "action", action, "status", target)
	return o.reg.GetOwned(id, ownerID)
}

// Stop terminates the bot's backend resource, records status stopped, and
// releases its port. Stopping a bot already in a terminal status reports
// AlreadyTerminal without touching the port again.
func (o *Orchestrator) Stop(ctx context.Context, id, ownerID string) (model.Bot, error) {
	bot, err := o.reg.GetOwned(id, ownerID)
	if err != nil {
		return model.Bot{}, err
	}
	if model.Terminal(bot.Status) {
		return model.Bot{}, registry.ErrAlreadyTerminal
	}

	if err := o.driver.Stop(ctx, bot.Handle); err != nil {
		controlActionsTotal.WithLabelValues("stop", "error").Inc()
		return model.Bot{}, err
	}

	o.finish(ctx, id, model.StatusStopped)
	controlActionsTotal.WithLabelValues("stop", "success").Inc()
	o.logger.Info("bot stopped", "bot_id", id, "owner_id", ownerID)
	return o.reg.GetOwned(id, ownerID)
}

// ListOwned returns the caller's bots after refreshing them against backend
// ground truth, so a listing never shows a bot as live when its resource is
// already gone.
func (o *Orchestrator) ListOwned(ctx context.Context, ownerID string) []model.Bot {
	o.ReconcileOwner(ctx, ownerID)
	return o.reg.ListByOwner(ownerID)
}

// GlobalStatus is the admin view over every tracked bot plus port usage.
type GlobalStatus struct {
	Bots  []model.Bot `json:"bots"`
	Ports ports.Stats `json:"ports"`
}

// Status reconciles all tracked bots and returns the global view.
func (o *Orchestrator) Status(ctx context.Context) GlobalStatus {
	o.ReconcileAll(ctx)
	return GlobalStatus{
		Bots:  o.reg.ListAll(),
		Ports: o.ports.UsageStats(),
	}
}

// finish records a terminal status and releases the bot's port. ClearPort
// grants the port to exactly one caller, so a stop racing a reconcile pass
// can never double-release.
func (o *Orchestrator) finish(ctx context.Context, id, status string) {
	if err := o.reg.UpdateStatus(id, status); err != nil && !errors.Is(err, registry.ErrAlreadyTerminal) {
		o.logger.Error("record terminal status", "bot_id", id, "status", status, "error", err)
	}
	if port, ok := o.reg.ClearPort(id); ok {
		o.ports.Release(port)
	}
	o.persistStatus(ctx, id, status)
	if err := o.store.ClearRuntime(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		o.logger.Error("clear persisted runtime", "bot_id", id, "error", err)
	}
}

// persistCreate writes the durable meeting record. The registry stays
// authoritative for live state, so persistence failures are logged, not
// surfaced to the caller.
func (o *Orchestrator) persistCreate(ctx context.Context, bot model.Bot) {
	handle := bot.Handle
	m := &store.Meeting{
		ID:            bot.ID,
		OwnerID:       bot.OwnerID,
		MeetingURL:    bot.MeetingURL,
		DurationMin:   bot.DurationMin,
		Backend:       bot.Backend,
		Handle:        &handle,
		Port:          bot.Port,
		Status:        bot.Status,
		CorrelationID: bot.CorrelationID,
		CreatedAt:     bot.CreatedAt,
	}
	if err := o.store.CreateMeeting(ctx, m); err != nil {
		o.logger.Error("persist meeting record", "bot_id", bot.ID, "error", err)
	}
}

func (o *Orchestrator) persistStatus(ctx context.Context, id, status string) {
	if err := o.store.UpdateMeetingStatus(ctx, id, status); err != nil && !errors.Is(err, store.ErrNotFound) {
		o.logger.Error("persist status", "bot_id", id, "status", status, "error", err)
	}
}
