package session

import "sync"

// Takeover tracks conversations where a human operator has taken over
// from the bot.
type Takeover struct {
	mu    sync.Mutex
	flags map[string]struct{}
}

// NewTakeover creates an empty takeover gate.
func NewTakeover() *Takeover {
	return &Takeover{flags: make(map[string]struct{})}
}

// Set marks uid as operated by a human. Setting twice is a no-op.
func (g *Takeover) Set(uid string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flags[uid] = struct{}{}
}

// Clear hands uid back to the bot. It reports whether a flag was removed.
func (g *Takeover) Clear(uid string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.flags[uid]; !ok {
		return false
	}
	delete(g.flags, uid)
	return true
}

// IsTakenOver reports whether a human operates uid.
func (g *Takeover) IsTakenOver(uid string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.flags[uid]
	return ok
}

// Count returns the number of conversations under human takeover.
func (g *Takeover) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flags)
}
