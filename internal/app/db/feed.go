package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"socialchat/internal/pkg/logx"
)

const (
	// ProfileMessagesChannel is the NOTIFY channel fed by the profile_messages insert trigger.
	ProfileMessagesChannel = "profile_messages"

	feedReconnectDelay = 2 * time.Second
)

// ProfileMessage is one profile-wall post as announced by the insert trigger.
type ProfileMessage struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Body string    `json:"body"`
	Time time.Time `json:"time"`
}

// DecodeProfileMessage parses a notification payload.
func DecodeProfileMessage(payload []byte) (ProfileMessage, error) {
	var msg ProfileMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ProfileMessage{}, fmt.Errorf("decode profile message: %w", err)
	}
	if msg.To == "" || msg.From == "" {
		return ProfileMessage{}, errors.New("decode profile message: missing from/to")
	}
	return msg, nil
}

// ProfileFeed listens for new profile messages on a dedicated pool connection.
type ProfileFeed struct {
	pool    *pgxpool.Pool
	channel string
	logger  zerolog.Logger
}

// NewProfileFeed creates a feed on the default channel.
func NewProfileFeed(pool *pgxpool.Pool) *ProfileFeed {
	return &ProfileFeed{
		pool:    pool,
		channel: ProfileMessagesChannel,
		logger:  logx.Component("ProfileFeed"),
	}
}

// Run blocks until ctx is done, calling handle for every decoded message.
// A lost connection is re-established after a short delay.
func (f *ProfileFeed) Run(ctx context.Context, handle func(context.Context, ProfileMessage)) {
	f.logger.Info().Str("channel", f.channel).Msg("Profile feed started.")
	defer f.logger.Info().Msg("Profile feed stopped.")

	for {
		err := f.listen(ctx, handle)
		if ctx.Err() != nil {
			return
		}

		f.logger.Warn().Err(err).Dur("retry_in", feedReconnectDelay).Msg("Profile feed connection lost.")

		select {
		case <-ctx.Done():
			return
		case <-time.After(feedReconnectDelay):
		}
	}
}

func (f *ProfileFeed) listen(ctx context.Context, handle func(context.Context, ProfileMessage)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := conn.Exec(unlistenCtx, "UNLISTEN *"); err != nil {
				f.logger.Debug().Err(err).Msg("UNLISTEN failed")
			}
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		msg, err := DecodeProfileMessage([]byte(notification.Payload))
		if err != nil {
			f.logger.Warn().Err(err).Str("payload", notification.Payload).Msg("Dropping malformed profile notification.")
			continue
		}

		handle(ctx, msg)
	}
}
