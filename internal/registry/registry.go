// Package registry holds the authoritative in-memory table of tracked bot
// instances. All mutations pass through it; reads return value snapshots so
// callers never observe a partially-updated record.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/quikscribe/scribed/internal/model"
)

var (
	// ErrNotFound is returned for an unknown or not-owned bot id.
	ErrNotFound = errors.New("bot not found")

	// ErrAlreadyTerminal is returned when a write would move a bot out of a
	// terminal status. Terminal statuses are sticky.
	ErrAlreadyTerminal = errors.New("bot already in terminal state")

	// ErrInvalidTransition is returned for a status write that the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateID is returned when inserting a bot whose id is taken.
	ErrDuplicateID = errors.New("bot id already registered")
)

// Registry is the in-memory bot table.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]*model.Bot
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		bots: make(map[string]*model.Bot),
	}
}

// Insert adds a bot. The stored record is a copy of the argument.
func (r *Registry) Insert(bot model.Bot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bots[bot.ID]; exists {
		return ErrDuplicateID
	}
	r.bots[bot.ID] = &bot
	return nil
}

// Get returns a snapshot of the bot with the given id, regardless of owner.
// Used internally by the reconciler.
func (r *Registry) Get(id string) (model.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bot, ok := r.bots[id]
	if !ok {
		return model.Bot{}, ErrNotFound
	}
	return snapshot(bot), nil
}

// GetOwned returns a snapshot of the bot only if it belongs to ownerID.
// A bot owned by someone else reports not-found rather than leaking its
// existence.
func (r *Registry) GetOwned(id, ownerID string) (model.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bot, ok := r.bots[id]
	if !ok || bot.OwnerID != ownerID {
		return model.Bot{}, ErrNotFound
	}
	return snapshot(bot), nil
}

// ListByOwner returns snapshots of all bots owned by ownerID, ordered by id.
func (r *Registry) ListByOwner(ownerID string) []model.Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Bot
	for _, bot := range r.bots {
		if bot.OwnerID == ownerID {
			out = append(out, snapshot(bot))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAll returns snapshots of every tracked bot, ordered by id.
func (r *Registry) ListAll() []model.Bot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Bot, 0, len(r.bots))
	for _, bot := range r.bots {
		out = append(out, snapshot(bot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateStatus moves a bot to a new status, enforcing the sticky-terminal
// rule and the forward-only state machine. Writing the current status again
// is a no-op. The first transition to running stamps StartedAt.
func (r *Registry) UpdateStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bot, ok := r.bots[id]
	if !ok {
		return ErrNotFound
	}
	if bot.Status == status {
		return nil
	}
	if model.Terminal(bot.Status) {
		return ErrAlreadyTerminal
	}
	if !model.ValidTransition(bot.Status, status) {
		return ErrInvalidTransition
	}
	bot.Status = status
	if status == model.StatusRunning && bot.StartedAt == nil {
		now := time.Now().UTC()
		bot.StartedAt = &now
	}
	return nil
}

// ClearPort detaches and returns the bot's port. The second return is true
// only for the first caller; later calls see no port. This makes the
// release-to-allocator step exactly-once under concurrent stop/reconcile.
func (r *Registry) ClearPort(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bot, ok := r.bots[id]
	if !ok || bot.Port == nil {
		return 0, false
	}
	port := *bot.Port
	bot.Port = nil
	return port, true
}

// Remove deletes a bot from the table.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[id]; !ok {
		return ErrNotFound
	}
	delete(r.bots, id)
	return nil
}

// snapshot copies a record, including the port pointee, so the caller's view
// is immune to later registry writes.
func snapshot(bot *model.Bot) model.Bot {
	out := *bot
	if bot.Port != nil {
		p := *bot.Port
		out.Port = &p
	}
	if bot.StartedAt != nil {
		t := *bot.StartedAt
		out.StartedAt = &t
	}
	return out
}
