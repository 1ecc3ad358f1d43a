package chat

import (
	"context"
	"html"
	"sync"
)

// ProfileWatchers tracks which connections watch which user's profile wall.
// A connection watches at most one profile at a time.
type ProfileWatchers struct {
	mu       sync.Mutex
	byTarget map[string]map[*Connection]struct{}
}

// NewProfileWatchers returns an empty registry.
func NewProfileWatchers() *ProfileWatchers {
	return &ProfileWatchers{byTarget: make(map[string]map[*Connection]struct{})}
}

// Watch points conn at target, replacing whatever it watched before.
func (w *ProfileWatchers) Watch(conn *Connection, target string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.unwatchLocked(conn)

	set, ok := w.byTarget[target]
	if !ok {
		set = make(map[*Connection]struct{})
		w.byTarget[target] = set
	}
	set[conn] = struct{}{}
	conn.watching = target
}

// Drop removes conn from the registry.
func (w *ProfileWatchers) Drop(conn *Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.unwatchLocked(conn)
}

func (w *ProfileWatchers) unwatchLocked(conn *Connection) {
	if conn.watching == "" {
		return
	}

	if set, ok := w.byTarget[conn.watching]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(w.byTarget, conn.watching)
		}
	}
	conn.watching = ""
}

// WatchersOf returns a snapshot of connections watching target.
func (w *ProfileWatchers) WatchersOf(target string) []*Connection {
	w.mu.Lock()
	defer w.mu.Unlock()

	set := w.byTarget[target]
	out := make([]*Connection, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

// Len returns the number of watched profiles.
func (w *ProfileWatchers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.byTarget)
}

// Clear drops every watch.
func (w *ProfileWatchers) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, set := range w.byTarget {
		for conn := range set {
			conn.watching = ""
		}
	}
	w.byTarget = make(map[string]map[*Connection]struct{})
}

// NotifyProfileMessage pushes a new post on msg.To's wall to every watching
// connection whose user is msg.To or one of msg.To's friends.
// It returns the number of connections the post was queued on.
func (s *Supervisor) NotifyProfileMessage(ctx context.Context, msg ProfileMessage) int {
	watchers := s.watchers.WatchersOf(msg.To)
	if len(watchers) == 0 {
		return 0
	}

	var err error
	msg.FromUsername, msg.ToUsername, err = s.router.usernames(ctx, msg.From, msg.To)
	if err != nil {
		s.logger.Warn().Err(err).Str("profile_id", msg.To).Msg("Username lookup failed, dropping profile push.")
		return 0
	}
	msg.Body = html.EscapeString(msg.Body)

	frame, err := encodeEvent(EventProfileWatch, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode profile message")
		return 0
	}

	// Access is decided per watching user, not per tab.
	access := make(map[string]bool, len(watchers))
	pushed := 0

	for _, conn := range watchers {
		allowed, checked := access[conn.UserID()]
		if !checked {
			allowed, err = s.router.related(ctx, msg.To, conn.UserID())
			if err != nil {
				conn.logger.Warn().Err(err).Str("profile_id", msg.To).Msg("Friendship lookup failed, skipping watcher.")
				allowed = false
			}
			access[conn.UserID()] = allowed
		}

		if allowed && conn.Send(frame) {
			pushed++
			s.metrics.RecordProfilePush()
		}
	}

	return pushed
}
