package chat

import "sync"

// PresenceTable maps each online user to the connections currently open for them.
// A user has an entry iff at least one connection is registered.
type PresenceTable struct {
	// mu guards entries; it is never held while calling out of this file.
	mu sync.RWMutex

	// entries keeps connections in registration order.
	entries map[string][]*Connection
}

// NewPresenceTable returns an empty table.
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{entries: make(map[string][]*Connection)}
}

// Register adds conn to userID's set. Registering the same connection twice is a no-op.
func (p *PresenceTable) Register(userID string, conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.entries[userID] {
		if existing == conn {
			return
		}
	}
	p.entries[userID] = append(p.entries[userID], conn)
}

// Deregister removes conn from userID's set and drops the entry once it is empty.
// Unknown users or connections are ignored.
func (p *PresenceTable) Deregister(userID string, conn *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.entries[userID]
	if !ok {
		return
	}

	for i, existing := range conns {
		if existing != conn {
			continue
		}

		if len(conns) == 1 {
			delete(p.entries, userID)
			return
		}

		// Build a fresh slice so the backing array of earlier snapshots is untouched.
		remaining := make([]*Connection, 0, len(conns)-1)
		remaining = append(remaining, conns[:i]...)
		remaining = append(remaining, conns[i+1:]...)
		p.entries[userID] = remaining
		return
	}
}

// IsOnline reports whether userID has at least one open connection.
func (p *PresenceTable) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries[userID]) > 0
}

// ConnectionsFor returns a snapshot of userID's connections, or nil when offline.
func (p *PresenceTable) ConnectionsFor(userID string) []*Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.entries[userID]
	if len(conns) == 0 {
		return nil
	}

	snapshot := make([]*Connection, len(conns))
	copy(snapshot, conns)
	return snapshot
}

// Len returns the number of online users.
func (p *PresenceTable) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.entries)
}

// ConnectionCount returns the number of registered connections across all users.
func (p *PresenceTable) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, conns := range p.entries {
		n += len(conns)
	}
	return n
}

// Clear empties the table and returns the connections that were registered.
func (p *PresenceTable) Clear() []*Connection {
	p.mu.Lock()
	defer p.mu.Unlock()

	var removed []*Connection
	for _, conns := range p.entries {
		removed = append(removed, conns...)
	}
	p.entries = make(map[string][]*Connection)
	return removed
}
