package replication

import (
	"sync"
	"time"
)

// DefaultEchoWindow is how long a recorded mutation waits for its echo
const DefaultEchoWindow = 10 * time.Second

// PendingEcho is a mutation this service applied to a peer and expects to
// see reflected back as a webhook.
type PendingEcho struct {
	Change    Change
	CreatedAt time.Time
}

// EchoGuard remembers outbound mutations per repository so that the
// webhooks they trigger are recognised and not propagated again. Each
// recorded mutation suppresses at most one inbound event.
type EchoGuard struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string][]PendingEcho
	now     func() time.Time
}

// NewEchoGuard creates a guard whose entries expire after window.
// A non-positive window selects DefaultEchoWindow.
func NewEchoGuard(window time.Duration) *EchoGuard {
	if window <= 0 {
		window = DefaultEchoWindow
	}
	return &EchoGuard{
		window:  window,
		pending: make(map[string][]PendingEcho),
		now:     time.Now,
	}
}

// Window returns the expiry window
func (g *EchoGuard) Window() time.Duration {
	return g.window
}

// Record registers an outbound change applied to repo
func (g *EchoGuard) Record(repo string, change Change) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending[repo] = append(g.pending[repo], PendingEcho{
		Change:    change,
		CreatedAt: g.now(),
	})
}

// ShouldSuppress reports whether change on repo is the echo of a recorded
// mutation. A match consumes the entry.
func (g *EchoGuard) ShouldSuppress(repo string, change Change) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweepRepo(repo, g.now())

	entries := g.pending[repo]
	for i, entry := range entries {
		if entry.Change != change {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(g.pending, repo)
		} else {
			g.pending[repo] = entries
		}
		return true
	}
	return false
}

// Sweep purges expired entries of every repository
func (g *EchoGuard) Sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for repo := range g.pending {
		g.sweepRepo(repo, now)
	}
}

// Pending returns the number of live entries for repo
func (g *EchoGuard) Pending(repo string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweepRepo(repo, g.now())
	return len(g.pending[repo])
}

// Len returns the number of entries across all repositories, expired
// entries included until the next sweep.
func (g *EchoGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := 0
	for _, entries := range g.pending {
		total += len(entries)
	}
	return total
}

// sweepRepo must be called with g.mu held
func (g *EchoGuard) sweepRepo(repo string, now time.Time) {
	entries, ok := g.pending[repo]
	if !ok {
		return
	}

	live := entries[:0]
	for _, entry := range entries {
		if now.Sub(entry.CreatedAt) >= g.window {
			continue
		}
		live = append(live, entry)
	}

	if len(live) == 0 {
		delete(g.pending, repo)
		return
	}
	g.pending[repo] = live
}
