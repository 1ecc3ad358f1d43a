/*
Package chat contains the realtime messaging and presence core.

This file defines the Supervisor, the owner of every chat connection. It authenticates
and upgrades incoming websocket requests, registers them in the PresenceTable, routes
their frames, deregisters them when they close, and tears everything down on Stop.
*/
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"socialchat/internal/pkg/errs"
	"socialchat/internal/pkg/logx"
	"socialchat/internal/pkg/resp"
)

// Options configures a Supervisor.
type Options struct {
	Resolver  IdentityResolver
	Oracle    FriendshipOracle
	Directory UserDirectory
	Upgrader  websocket.Upgrader

	// MaxLength is the longest accepted chat body, in characters.
	MaxLength int

	// LookupTimeout bounds every oracle and directory call.
	LookupTimeout time.Duration

	Metrics *Metrics
}

// Supervisor accepts, tracks and tears down chat connections.
type Supervisor struct {
	resolver IdentityResolver
	upgrader websocket.Upgrader

	presence *PresenceTable
	watchers *ProfileWatchers
	router   *Router

	// frameLimit is the largest inbound frame handed to handleFrame.
	frameLimit int64

	// ctx is cancelled by Stop so in-flight lookups end early.
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects stopped and conns.
	mu      sync.Mutex
	stopped bool
	conns   map[*Connection]struct{}

	// wg counts the read and write pump of every tracked connection.
	wg sync.WaitGroup

	metrics *Metrics
	logger  zerolog.Logger
}

// NewSupervisor constructs a Supervisor with an empty PresenceTable.
func NewSupervisor(opts Options) *Supervisor {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 100
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}

	presence := NewPresenceTable()
	ctx, cancel := context.WithCancel(context.Background())

	return &Supervisor{
		resolver:   opts.Resolver,
		upgrader:   opts.Upgrader,
		presence:   presence,
		watchers:   NewProfileWatchers(),
		router:     NewRouter(presence, opts.Oracle, opts.Directory, opts.MaxLength, opts.LookupTimeout, opts.Metrics),
		frameLimit: frameLimitFor(opts.MaxLength),
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[*Connection]struct{}),
		metrics:    opts.Metrics,
		logger:     logx.Component("Supervisor"),
	}
}

// Presence exposes the table for read-only inspection.
func (s *Supervisor) Presence() *PresenceTable {
	return s.presence
}

// ServeWS authenticates and upgrades r, then serves the connection until it closes.
// Requests without a valid session are refused before the upgrade and never registered.
func (s *Supervisor) ServeWS(w http.ResponseWriter, r *http.Request) {
	if s.isStopped() {
		resp.RespondError(w, r, errs.NewError(errs.ErrServiceStopping))
		return
	}

	userID, err := s.resolver.Resolve(r)
	if err != nil {
		s.metrics.RecordHandshakeFailure()
		s.logger.Info().Err(err).Msg("WebSocket connection rejected: authentication failed.")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", userID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	conn := newConnection(userID, ws)
	if !s.track(conn) {
		conn.logger.Info().Msg("Supervisor stopped during upgrade, closing connection.")
		_ = ws.Close()
		return
	}

	go func() {
		defer s.wg.Done()
		conn.writePump()
	}()

	conn.logger.Info().Msg("WebSocket connection established and registered.")

	conn.readPump(s.frameLimit, s.handleFrame, s.handleOversize)
	s.release(conn)
}

func (s *Supervisor) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stopped
}

// track registers conn unless the supervisor is stopping.
func (s *Supervisor) track(conn *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.conns[conn] = struct{}{}
	s.presence.Register(conn.userID, conn)
	s.wg.Add(2)

	s.metrics.SetPresence(s.presence.ConnectionCount(), s.presence.Len())
	return true
}

// release undoes track. It runs once per connection, whichever side closed it.
func (s *Supervisor) release(conn *Connection) {
	conn.releaseOnce.Do(func() {
		s.presence.Deregister(conn.userID, conn)
		s.watchers.Drop(conn)

		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()

		conn.Close()
		s.metrics.SetPresence(s.presence.ConnectionCount(), s.presence.Len())
		conn.logger.Info().Msg("Client connection released.")

		s.wg.Done()
	})
}

// handleFrame decodes one inbound frame and dispatches it by event name.
func (s *Supervisor) handleFrame(conn *Connection, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		conn.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		s.router.Reject(conn, errs.NewError(errs.ErrInvalidMessage))
		return
	}

	switch env.Event {
	case EventChatMessage:
		var ev ChatEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			// Leaves ev empty, which the router rejects as malformed.
			conn.logger.Warn().Err(err).Msg("Client sent invalid chatmessage payload")
			ev = ChatEvent{}
		}
		_ = s.router.Route(s.ctx, conn, ev)

	case EventProfileWatch:
		var req ProfileWatchRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.ID == nil || *req.ID == "" {
			s.metrics.RecordWatchRejected()
			s.router.notify(conn, errs.NewError(errs.ErrInvalidMessage))
			return
		}
		s.watchers.Watch(conn, *req.ID)

	default:
		conn.logger.Warn().Str("event", string(env.Event)).Msg("Client sent unsupported event")
		s.router.Reject(conn, errs.NewError(errs.ErrInvalidMessage))
	}
}

// handleOversize answers a frame too large to carry an acceptable body.
func (s *Supervisor) handleOversize(conn *Connection) {
	s.router.Reject(conn, errs.NewError(errs.ErrMessageContentTooLong))
}

// Stop refuses new connections, closes every tracked one and waits for their
// pumps to finish. The PresenceTable is empty once Stop returns.
// Stop may be called more than once; later calls only wait.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.wg.Wait()
		return nil
	}

	s.stopped = true
	conns := make([]*Connection, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	s.logger.Info().Int("connections", len(conns)).Msg("Stopping supervisor.")
	s.cancel()

	var result *multierror.Error
	for _, conn := range conns {
		conn.Close()
		if err := conn.expireRead(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	s.wg.Wait()

	s.presence.Clear()
	s.watchers.Clear()
	s.metrics.SetPresence(0, 0)

	s.logger.Info().Msg("Supervisor stopped.")
	return result.ErrorOrNil()
}
