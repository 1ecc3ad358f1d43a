package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

var errLookup = errors.New("lookup unavailable")

// fakeOracle answers from a fixed friend list.
type fakeOracle struct {
	mu      sync.Mutex
	friends map[[2]string]bool
	err     error
	calls   int
}

func newFakeOracle(pairs ...[2]string) *fakeOracle {
	o := &fakeOracle{friends: make(map[[2]string]bool)}
	for _, p := range pairs {
		o.friends[p] = true
		o.friends[[2]string{p[1], p[0]}] = true
	}
	return o
}

func (o *fakeOracle) AreFriends(ctx context.Context, a, b string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls++
	if o.err != nil {
		return false, o.err
	}
	return o.friends[[2]string{a, b}], nil
}

func (o *fakeOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// fakeDirectory maps ids to names; unknown ids fail.
type fakeDirectory struct {
	mu    sync.Mutex
	names map[string]string
	calls int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{names: map[string]string{
		"alice": "Alice",
		"bob":   "Bob",
		"carol": "Carol",
	}}
}

func (d *fakeDirectory) UsernameFor(ctx context.Context, id string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	name, ok := d.names[id]
	if !ok {
		return "", errLookup
	}
	return name, nil
}

func strPtr(s string) *string { return &s }

// nextFrame pops one queued frame from c and decodes its envelope.
func nextFrame(t *testing.T, c *Connection) Envelope {
	t.Helper()

	select {
	case frame, ok := <-c.send:
		if !ok {
			t.Fatalf("connection %s closed, expected a frame", c.UserID())
		}
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("invalid frame %q: %v", frame, err)
		}
		return env
	default:
		t.Fatalf("no frame queued for %s", c.UserID())
	}
	return Envelope{}
}

func nextChatMessage(t *testing.T, c *Connection) ChatMessage {
	t.Helper()

	env := nextFrame(t, c)
	if env.Event != EventChatMessage {
		t.Fatalf("expected %s event, got %s", EventChatMessage, env.Event)
	}

	var msg ChatMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("invalid chat message %q: %v", env.Data, err)
	}
	return msg
}

func expectNoFrame(t *testing.T, c *Connection) {
	t.Helper()

	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame for %s: %s", c.UserID(), frame)
	default:
	}
}

func expectSystemNotice(t *testing.T, c *Connection, code int, body string) {
	t.Helper()

	msg := nextChatMessage(t, c)
	if msg.Status != StatusFailure || msg.FromID != SystemSender || msg.FromUsername != SystemSender {
		t.Fatalf("expected System notification, got %+v", msg)
	}
	if msg.Code != code || msg.Body != body {
		t.Fatalf("expected code %d %q, got %d %q", code, body, msg.Code, msg.Body)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
