package ecs

import "sync"

// History is an append-only sequence of complete world snapshots indexed by
// tick: index 0 is the pre-tick state and it grows by one per completed
// tick (spec.md §4.8, resolving the Open Question in spec.md §9 as
// "includes the initial snapshot" — see DESIGN.md).
//
// Growth is unbounded by default, matching spec.md ("bounding is a policy
// concern left to the operator"); NewBoundedHistory gives operators a
// simple ring-style cap — a true LRU (github.com/hashicorp/golang-lru/v2,
// used by sim.WorldExec's per-tick column cache, see sim/worldexec.go)
// would evict by recency rather than by tick order, which is wrong for a
// replay log where only the oldest ticks should ever be dropped.
type History struct {
	mu     sync.RWMutex
	worlds []*World
	bound  int // 0 == unbounded
	base   int // index of worlds[0] in the logical, unbounded sequence
}

// NewHistory constructs an empty, unbounded history.
func NewHistory() *History {
	return &History{}
}

// NewBoundedHistory constructs a history that retains only the most recent
// n snapshots, evicting the oldest on overflow. Replaying an evicted index
// is reported via Get's ok=false.
func NewBoundedHistory(n int) *History {
	return &History{bound: n}
}

// PushWorld clones host and appends the snapshot.
func (h *History) PushWorld(host *World) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.worlds = append(h.worlds, host.Clone())
	if h.bound > 0 && len(h.worlds) > h.bound {
		evict := len(h.worlds) - h.bound
		h.worlds = h.worlds[evict:]
		h.base += evict
	}
}

// Len returns the logical length of the history: the number of snapshots
// ever pushed, evicted ones included, so Len()-1 is the newest index.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.base + len(h.worlds)
}

// Get returns the snapshot at logical index, or ok=false if it was evicted
// or never pushed.
func (h *History) Get(index int) (*World, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	local := index - h.base
	if local < 0 || local >= len(h.worlds) {
		return nil, false
	}
	return h.worlds[local], true
}
