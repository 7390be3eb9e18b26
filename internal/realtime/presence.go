package realtime

import "sync"

// PresenceRegistry tracks which users currently hold live connections.
// Injected rather than read off the hub so a multi-instance deployment can
// swap in a shared store without touching callers.
type PresenceRegistry interface {
	Connected(userID int64, connID string)
	Disconnected(userID int64, connID string)
	IsOnline(userID int64) bool
}

// MemoryPresence is the single-process default.
type MemoryPresence struct {
	mu    sync.RWMutex
	conns map[int64]map[string]struct{}
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{conns: make(map[int64]map[string]struct{})}
}

func (p *MemoryPresence) Connected(userID int64, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[userID] == nil {
		p.conns[userID] = make(map[string]struct{})
	}
	p.conns[userID][connID] = struct{}{}
}

func (p *MemoryPresence) Disconnected(userID int64, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(p.conns, userID)
	}
}

func (p *MemoryPresence) IsOnline(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[userID]) > 0
}
