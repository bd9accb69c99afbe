package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/model"
)

// ReconcileOne refreshes a single bot against backend ground truth and
// returns its post-reconcile snapshot. Terminal bots are left untouched.
//
// Mapping: a running resource confirms a starting bot is now running; an
// exited or absent resource means the bot died without an explicit stop and
// is recorded failed, with its port released. A resource that reports
// running while the bot is paused changes nothing: pausing happens inside
// the bot process and is invisible to the backend.
func (o *Orchestrator) ReconcileOne(ctx context.Context, id string) (model.Bot, error) {
	bot, err := o.reg.Get(id)
	if err != nil {
		return model.Bot{}, err
	}
	if model.Terminal(bot.Status) {
		return bot, nil
	}

	state, err := o.driver.Inspect(ctx, bot.Handle)
	if err != nil {
		return model.Bot{}, fmt.Errorf("inspect bot %s: %w", id, err)
	}

	switch state {
	case backend.StateRunning:
		if bot.Status == model.StatusStarting {
			if err := o.reg.UpdateStatus(id, model.StatusRunning); err == nil {
				o.persistStatus(ctx, id, model.StatusRunning)
			}
		}
	case backend.StateCreated:
		// Resource exists but has not started; the bot stays as recorded.
	case backend.StateExited, backend.StateNotFound:
		o.logger.Warn("bot resource gone without explicit stop",
			"bot_id", id, "handle", bot.Handle, "backend_state", string(state))
		o.finish(ctx, id, model.StatusFailed)
		reconcileFailedTotal.Inc()
	}

	return o.reg.Get(id)
}

// ReconcileAll refreshes every tracked bot. A single bot's inspect failure
// is logged and skipped, never fatal to the pass.
func (o *Orchestrator) ReconcileAll(ctx context.Context) {
	o.reconcile(ctx, o.reg.ListAll())
}

// ReconcileOwner refreshes only the given owner's bots. Used by the listing
// path so each caller pays for their own reconciliation.
func (o *Orchestrator) ReconcileOwner(ctx context.Context, ownerID string) {
	o.reconcile(ctx, o.reg.ListByOwner(ownerID))
}

func (o *Orchestrator) reconcile(ctx context.Context, bots []model.Bot) {
	for _, bot := range bots {
		if model.Terminal(bot.Status) {
			continue
		}
		if _, err := o.ReconcileOne(ctx, bot.ID); err != nil {
			o.logger.Warn("reconcile skipped", "bot_id", bot.ID, "error", err)
		}
	}
	reconcilePassesTotal.Inc()
}

// Cleanup reconciles everything, then prunes registry entries that are
// terminal and whose backend resource is confirmed absent. Returns the
// number of entries removed.
func (o *Orchestrator) Cleanup(ctx context.Context) int {
	o.ReconcileAll(ctx)

	removed := 0
	for _, bot := range o.reg.ListAll() {
		if !model.Terminal(bot.Status) {
			continue
		}
		state, err := o.driver.Inspect(ctx, bot.Handle)
		if err != nil {
			o.logger.Warn("cleanup inspect failed", "bot_id", bot.ID, "error", err)
			continue
		}
		if state != backend.StateNotFound {
			continue
		}
		// Terminal bots have already had their port released, but a crash
		// between the status write and the release would leak it; ClearPort
		// makes this a harmless second attempt.
		if port, ok := o.reg.ClearPort(bot.ID); ok {
			o.ports.Release(port)
		}
		if err := o.reg.Remove(bot.ID); err == nil {
			removed++
			cleanupRemovedTotal.Inc()
			o.logger.Info("pruned dead bot entry", "bot_id", bot.ID, "status", bot.Status)
		}
	}
	return removed
}

// Run starts the background reconcile loop. An interval of zero or less
// disables it. The loop exits when ctx is cancelled; Wait blocks until it
// has fully drained so shutdown and tests can deterministically await it.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	o.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.ReconcileAll(ctx)
			}
		}
	})
}

// Wait blocks until the background reconcile loop has stopped.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
