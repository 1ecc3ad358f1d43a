/*
Package chat contains the realtime messaging and presence core.

This file defines the Router, which authorizes and delivers a single chat event.
Checks run in a fixed order and the first failing one is reported to the sending
connection as a System notification; nothing is delivered before all checks pass.
*/
package chat

import (
	"context"
	"errors"
	"html"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"socialchat/internal/pkg/errs"
	"socialchat/internal/pkg/logx"
)

// Router validates chat events and fans accepted ones out over the PresenceTable.
type Router struct {
	presence  *PresenceTable
	oracle    FriendshipOracle
	directory UserDirectory

	maxLength     int
	lookupTimeout time.Duration

	metrics *Metrics
	logger  zerolog.Logger
}

// NewRouter builds a Router. maxLength is counted in characters.
func NewRouter(presence *PresenceTable, oracle FriendshipOracle, directory UserDirectory, maxLength int, lookupTimeout time.Duration, metrics *Metrics) *Router {
	return &Router{
		presence:      presence,
		oracle:        oracle,
		directory:     directory,
		maxLength:     maxLength,
		lookupTimeout: lookupTimeout,
		metrics:       metrics,
		logger:        logx.Component("Router"),
	}
}

// Route processes ev from src to completion. It returns the rejection sent to
// src, or nil when the message was delivered.
func (r *Router) Route(ctx context.Context, src *Connection, ev ChatEvent) error {
	frames, err := r.route(ctx, src, ev)
	if err != nil {
		r.Reject(src, err)
		return err
	}

	r.metrics.RecordDelivered(frames)
	return nil
}

// Reject pushes err to src as a System notification and counts it as a rejected chat event.
func (r *Router) Reject(src *Connection, err *errs.CustomError) {
	r.metrics.RecordRejected(strconv.Itoa(err.Code))
	r.notify(src, err)
}

// notify pushes err to src as a System notification. System notices always
// travel on the chatmessage event, whichever event caused them.
func (r *Router) notify(src *Connection, err *errs.CustomError) {
	frame, encErr := encodeEvent(EventChatMessage, systemMessage(err))
	if encErr != nil {
		r.logger.Error().Err(encErr).Msg("Failed to build System notification")
		return
	}

	if !src.Send(frame) {
		src.logger.Debug().Int("code", err.Code).Msg("System notification dropped, connection closed.")
	}
}

func (r *Router) route(ctx context.Context, src *Connection, ev ChatEvent) (int, *errs.CustomError) {
	if !ev.wellFormed() {
		return 0, errs.NewError(errs.ErrInvalidMessage)
	}

	senderID := src.UserID()
	recipientID := *ev.RecipientID
	body := *ev.Body

	related, err := r.related(ctx, senderID, recipientID)
	if err != nil {
		src.logger.Warn().Err(err).Str("recipient_id", recipientID).Msg("Friendship lookup failed, rejecting message.")
		return 0, errs.NewError(errs.ErrNotFriends)
	}
	if !related {
		return 0, errs.NewError(errs.ErrNotFriends)
	}

	if !r.presence.IsOnline(recipientID) {
		return 0, errs.NewError(errs.ErrRecipientOffline)
	}

	if senderID == recipientID {
		return 0, errs.NewError(errs.ErrSendToSelf)
	}

	if utf8.RuneCountInString(body) > r.maxLength {
		return 0, errs.NewError(errs.ErrMessageContentTooLong)
	}

	fromUsername, toUsername, err := r.usernames(ctx, senderID, recipientID)
	if err != nil {
		src.logger.Warn().Err(err).Str("recipient_id", recipientID).Msg("Username lookup failed, rejecting message.")
		return 0, errs.NewError(errs.ErrNotFriends)
	}

	frame, err := encodeEvent(EventChatMessage, ChatMessage{
		Status:       StatusSuccess,
		FromID:       senderID,
		FromUsername: fromUsername,
		ToID:         recipientID,
		ToUsername:   toUsername,
		Body:         html.EscapeString(body),
	})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode chat message")
		return 0, errs.NewError(errs.ErrUnknown)
	}

	targets := r.presence.ConnectionsFor(recipientID)
	targets = append(targets, r.presence.ConnectionsFor(senderID)...)

	queued := 0
	for _, conn := range targets {
		if conn.Send(frame) {
			queued++
		}
	}

	return queued, nil
}

// related reports whether a may exchange messages with b. A user is related to themself.
func (r *Router) related(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	return r.oracle.AreFriends(ctx, a, b)
}

func (r *Router) usernames(ctx context.Context, senderID, recipientID string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	from, errFrom := r.directory.UsernameFor(ctx, senderID)
	to, errTo := r.directory.UsernameFor(ctx, recipientID)
	if err := errors.Join(errFrom, errTo); err != nil {
		return "", "", err
	}
	return from, to, nil
}
