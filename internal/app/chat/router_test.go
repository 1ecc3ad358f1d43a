package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"socialchat/internal/pkg/errs"
)

type routerFixture struct {
	presence  *PresenceTable
	oracle    *fakeOracle
	directory *fakeDirectory
	router    *Router
}

func newRouterFixture(pairs ...[2]string) *routerFixture {
	f := &routerFixture{
		presence:  NewPresenceTable(),
		oracle:    newFakeOracle(pairs...),
		directory: newFakeDirectory(),
	}
	f.router = NewRouter(f.presence, f.oracle, f.directory, 100, time.Second, nil)
	return f
}

func (f *routerFixture) connect(userID string) *Connection {
	conn := newConnection(userID, nil)
	f.presence.Register(userID, conn)
	return conn
}

func chatEvent(recipient, body string) ChatEvent {
	return ChatEvent{RecipientID: strPtr(recipient), Body: strPtr(body)}
}

func TestRouteDeliversToRecipientAndSenderTabs(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	aliceTab1 := f.connect("alice")
	aliceTab2 := f.connect("alice")
	bob := f.connect("bob")

	if err := f.router.Route(context.Background(), aliceTab1, chatEvent("bob", "hi")); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}

	for _, conn := range []*Connection{bob, aliceTab1, aliceTab2} {
		msg := nextChatMessage(t, conn)
		want := ChatMessage{
			Status:       StatusSuccess,
			FromID:       "alice",
			FromUsername: "Alice",
			ToID:         "bob",
			ToUsername:   "Bob",
			Body:         "hi",
		}
		if msg != want {
			t.Fatalf("unexpected message on %s: %+v", conn.UserID(), msg)
		}
		expectNoFrame(t, conn)
	}
}

func TestRouteRejectsStrangers(t *testing.T) {
	f := newRouterFixture()
	alice := f.connect("alice")
	carol := f.connect("carol")

	err := f.router.Route(context.Background(), alice, chatEvent("carol", "hi"))
	if !errors.Is(err, errs.NewError(errs.ErrNotFriends)) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}

	expectSystemNotice(t, alice, errs.ErrNotFriends, "Not friends with target user")
	expectNoFrame(t, carol)
}

func TestRouteFriendshipCheckedBeforePresence(t *testing.T) {
	f := newRouterFixture()
	alice := f.connect("alice")

	_ = f.router.Route(context.Background(), alice, chatEvent("carol", "hi"))

	expectSystemNotice(t, alice, errs.ErrNotFriends, "Not friends with target user")
}

func TestRouteOracleFailureRejects(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	f.oracle.err = errLookup
	alice := f.connect("alice")
	bob := f.connect("bob")

	_ = f.router.Route(context.Background(), alice, chatEvent("bob", "hi"))

	expectSystemNotice(t, alice, errs.ErrNotFriends, "Not friends with target user")
	expectNoFrame(t, bob)
}

func TestRouteRejectsOfflineRecipient(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	alice := f.connect("alice")

	_ = f.router.Route(context.Background(), alice, chatEvent("bob", "hi"))

	expectSystemNotice(t, alice, errs.ErrRecipientOffline, "User is not online")
}

func TestRouteRejectsSelfSend(t *testing.T) {
	f := newRouterFixture()
	aliceTab1 := f.connect("alice")
	aliceTab2 := f.connect("alice")

	_ = f.router.Route(context.Background(), aliceTab1, chatEvent("alice", "hi"))

	expectSystemNotice(t, aliceTab1, errs.ErrSendToSelf, "Don't send messages to yourself")
	expectNoFrame(t, aliceTab2)
	if f.oracle.callCount() != 0 {
		t.Fatal("self-send should not consult the friendship oracle")
	}
}

func TestRouteLengthLimitCountsCharacters(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	alice := f.connect("alice")
	bob := f.connect("bob")

	_ = f.router.Route(context.Background(), alice, chatEvent("bob", strings.Repeat("a", 101)))
	expectSystemNotice(t, alice, errs.ErrMessageContentTooLong, "Message is too long")
	expectNoFrame(t, bob)

	// 100 multi-byte characters are within the limit.
	body := strings.Repeat("é", 100)
	if err := f.router.Route(context.Background(), alice, chatEvent("bob", body)); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if msg := nextChatMessage(t, bob); msg.Body != body {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestRouteRejectsMalformedEvents(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	alice := f.connect("alice")
	f.connect("bob")

	cases := []ChatEvent{
		{},
		{RecipientID: strPtr("bob")},
		{Body: strPtr("hi")},
	}

	for _, ev := range cases {
		_ = f.router.Route(context.Background(), alice, ev)
		expectSystemNotice(t, alice, errs.ErrInvalidMessage, "Message object is invalid")
	}
}

func TestRouteEscapesBody(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	alice := f.connect("alice")
	bob := f.connect("bob")

	_ = f.router.Route(context.Background(), alice, chatEvent("bob", `<script>alert("x")</script> & 'y'`))

	want := "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; &#39;y&#39;"
	if msg := nextChatMessage(t, bob); msg.Body != want {
		t.Fatalf("expected escaped body %q, got %q", want, msg.Body)
	}
}

func TestRouteUsernameFailureRejects(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "dave"})
	alice := f.connect("alice")
	dave := f.connect("dave")

	_ = f.router.Route(context.Background(), alice, chatEvent("dave", "hi"))

	expectSystemNotice(t, alice, errs.ErrNotFriends, "Not friends with target user")
	expectNoFrame(t, dave)
}

func TestRouteSkipsClosedConnections(t *testing.T) {
	f := newRouterFixture([2]string{"alice", "bob"})
	alice := f.connect("alice")
	bobTab1 := f.connect("bob")
	bobTab2 := f.connect("bob")
	bobTab1.Close()

	if err := f.router.Route(context.Background(), alice, chatEvent("bob", "hi")); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}

	nextChatMessage(t, bobTab2)
	nextChatMessage(t, alice)
}
