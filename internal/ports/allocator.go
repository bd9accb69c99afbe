// Package ports implements exclusive allocation of host ports for bot
// instances from a fixed configured range. The allocator's claimed set is the
// single source of truth: an optional host probe can veto a candidate that
// something outside the orchestrator already bound, but it never overrides
// the claimed set.
package ports

import (
	"errors"
	"math/rand/v2"
	"sync"
)

// ErrNoPortsAvailable is returned when every port in the range is claimed.
var ErrNoPortsAvailable = errors.New("no ports available in configured range")

// ProbeFunc reports whether a port looks free on the host. Advisory only:
// probing races with other processes, so a positive result is treated as a
// hint, never as authority over the claimed set.
type ProbeFunc func(port int) bool

// Allocator hands out ports from an inclusive [first, last] range.
type Allocator struct {
	first int
	last  int
	probe ProbeFunc

	mu      sync.Mutex
	claimed map[int]bool
}

// Stats is a snapshot of port usage.
type Stats struct {
	RangeFirst int `json:"range_first"`
	RangeLast  int `json:"range_last"`
	Total      int `json:"total"`
	InUse      int `json:"in_use"`
	Available  int `json:"available"`
}

// NewAllocator creates an allocator over the inclusive range [first, last].
// probe may be nil to disable host probing.
func NewAllocator(first, last int, probe ProbeFunc) *Allocator {
	return &Allocator{
		first:   first,
		last:    last,
		probe:   probe,
		claimed: make(map[int]bool),
	}
}

// Allocate claims and returns a random unclaimed port. Random selection
// rather than lowest-first reduces collision probability against untracked
// users of the same range. The candidate scan and the claim happen under one
// lock so concurrent callers can never receive the same port.
func (a *Allocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	candidates := make([]int, 0, a.last-a.first+1-len(a.claimed))
	for p := a.first; p <= a.last; p++ {
		if !a.claimed[p] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return 0, ErrNoPortsAvailable
	}

	// Start at a random candidate and scan forward past any that the host
	// probe vetoes. If every unclaimed port is vetoed the claimed set still
	// wins: take the original random pick rather than failing.
	start := rand.IntN(len(candidates))
	port := candidates[start]
	if a.probe != nil {
		for i := range candidates {
			c := candidates[(start+i)%len(candidates)]
			if a.probe(c) {
				port = c
				break
			}
		}
	}

	a.claimed[port] = true
	portsInUse.Set(float64(len(a.claimed)))
	return port, nil
}

// Release returns a port to the pool. Releasing an unclaimed port is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.claimed, port)
	portsInUse.Set(float64(len(a.claimed)))
}

// InUse reports whether a port is currently claimed.
func (a *Allocator) InUse(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.claimed[port]
}

// UsageStats returns a snapshot of port usage for the status endpoint.
func (a *Allocator) UsageStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.last - a.first + 1
	return Stats{
		RangeFirst: a.first,
		RangeLast:  a.last,
		Total:      total,
		InUse:      len(a.claimed),
		Available:  total - len(a.claimed),
	}
}
