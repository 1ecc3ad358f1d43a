/*
Package chat contains the realtime messaging and presence core: connection lifecycle,
the in-memory presence table, friendship-gated message routing, and profile watches.

This file defines the wire format. Every websocket text frame carries one Envelope,
naming the event and holding its JSON payload.
*/
package chat

import (
	"encoding/json"
	"time"

	"socialchat/internal/pkg/errs"
)

// EventName identifies the kind of payload inside an Envelope.
type EventName string

const (
	// EventChatMessage carries ChatEvent inbound and ChatMessage outbound.
	EventChatMessage EventName = "chatmessage"

	// EventProfileWatch carries ProfileWatchRequest inbound and ProfileMessage outbound.
	EventProfileWatch EventName = "profilewatch"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	// SystemSender is the pseudo user attributed to in-protocol error notifications.
	SystemSender = "System"
)

// Envelope is the outer frame of every message in both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatEvent is a chat message sent by a client. Pointer fields distinguish
// an absent key from an empty value.
type ChatEvent struct {
	RecipientID *string `json:"recipientId"`
	Body        *string `json:"body"`
}

func (e ChatEvent) wellFormed() bool {
	return e.RecipientID != nil && e.Body != nil
}

// ChatMessage is pushed to clients: either a delivered message or a System notification.
type ChatMessage struct {
	Status       string `json:"status"`
	Code         int    `json:"code,omitempty"`
	FromID       string `json:"fromId"`
	FromUsername string `json:"fromUsername"`
	ToID         string `json:"toId,omitempty"`
	ToUsername   string `json:"toUsername,omitempty"`
	Body         string `json:"body"`
}

// systemMessage renders a rejection as a System notification.
func systemMessage(customErr *errs.CustomError) ChatMessage {
	return ChatMessage{
		Status:       StatusFailure,
		Code:         customErr.Code,
		FromID:       SystemSender,
		FromUsername: SystemSender,
		Body:         customErr.Message,
	}
}

// ProfileWatchRequest asks the server to push new posts on the given user's profile wall.
type ProfileWatchRequest struct {
	ID *string `json:"id"`
}

// ProfileMessage is a profile-wall post pushed to watchers.
type ProfileMessage struct {
	ID           string    `json:"id"`
	From         string    `json:"from"`
	FromUsername string    `json:"fromUsername"`
	To           string    `json:"to"`
	ToUsername   string    `json:"toUsername"`
	Body         string    `json:"body"`
	Time         time.Time `json:"time"`
}

// encodeEvent wraps data in an Envelope and marshals it into one frame.
func encodeEvent(event EventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
