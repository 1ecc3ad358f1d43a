/*
Package chat contains the realtime messaging and presence core.

This file defines the Connection struct, representing one open websocket (one browser tab).
It owns the read and write pumps, the outbound queue, and the small amount of state that
belongs to a single socket.
*/
package chat

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"socialchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// lower bound (in bytes) of the per-frame read budget.
	minFrameLimit = 8192

	// bytes a single body character may take in a JSON frame ("\ud83d\ude00").
	maxEncodedRuneSize = 12

	// room for the envelope and the other payload fields.
	envelopeOverhead = 1024

	// frames beyond this size close the socket instead of being drained.
	hardReadLimit = 1 << 20

	// capacity of the outbound queue of a single connection.
	sendQueueSize = 256
)

// Connection is a single live websocket owned by one user.
type Connection struct {
	// id is unique per connection and only used for identification in logs and removal.
	id string

	// userID is the authenticated owner of the socket.
	userID string

	// ws is nil for connections that are never pumped (tests).
	ws *websocket.Conn

	// mu guards send and closed; Send and Close may race from different goroutines.
	mu     sync.Mutex
	send   chan []byte
	closed bool

	closeOnce   sync.Once
	releaseOnce sync.Once

	// watching is the profile currently watched by this socket, guarded by ProfileWatchers.mu.
	watching string

	logger zerolog.Logger
}

// newConnection wraps an upgraded websocket for userID.
func newConnection(userID string, ws *websocket.Conn) *Connection {
	id := uuid.NewString()

	return &Connection{
		id:     id,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("client_id", userID).
			Str("conn_id", id).
			Logger(),
	}
}

// ID returns the unique connection token.
func (c *Connection) ID() string { return c.id }

// UserID returns the owning user.
func (c *Connection) UserID() string { return c.userID }

// Send queues one encoded frame. It reports false when the connection is closed
// or its queue is full; a full queue means the client stopped reading, so the
// connection is closed as well.
func (c *Connection) Send(frame []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}

	select {
	case c.send <- frame:
		c.mu.Unlock()
		return true
	default:
	}
	c.mu.Unlock()

	c.logger.Warn().Int("queue_len", sendQueueSize).Msg("Client send queue full, closing connection.")
	c.Close()
	return false
}

// Close stops accepting frames and lets the write pump flush a close frame.
// It is safe to call from any goroutine, any number of times.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

// expireRead unblocks a pending read so the read pump returns promptly.
func (c *Connection) expireRead() error {
	if c.ws == nil {
		return nil
	}

	err := c.ws.SetReadDeadline(time.Now())
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// frameLimitFor returns the largest frame that can still carry a body of
// maxLength characters.
func frameLimitFor(maxLength int) int64 {
	limit := int64(maxLength)*maxEncodedRuneSize + envelopeOverhead
	if limit < minFrameLimit {
		return minFrameLimit
	}
	return limit
}

// readPump reads frames until the socket fails and hands each one to handle.
// Frames longer than frameLimit are drained without buffering and reported
// through oversize; the connection stays open.
// Frames of one connection are handled strictly one after another.
func (c *Connection) readPump(frameLimit int64, handle func(*Connection, []byte), oversize func(*Connection)) {
	c.ws.SetReadLimit(max(hardReadLimit, 4*frameLimit))

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, r, err := c.ws.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		frame, err := io.ReadAll(io.LimitReader(r, frameLimit+1))
		if err != nil {
			c.logger.Info().Err(err).Msg("Error reading message")
			return
		}

		if int64(len(frame)) > frameLimit {
			if _, err := io.Copy(io.Discard, r); err != nil {
				c.logger.Warn().Err(err).Msg("Client frame exceeds the hard read limit")
				return
			}
			c.logger.Debug().Int64("frame_limit", frameLimit).Msg("Dropped oversized client frame")
			oversize(c)
			continue
		}

		handle(c, frame)
	}
}

// writePump drains the send queue to the socket and keeps the heartbeat going.
// It closes the socket on exit, which also terminates the read pump.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.ws.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Error().Err(err).Msg("Client connection close error in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueued(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueued writes one queued frame, or a close frame once the queue is closed.
// Returns false when the pump should stop.
func (c *Connection) writeQueued(frame []byte, ok bool) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePing sends a websocket Ping to keep the connection alive.
func (c *Connection) writePing() bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
