/*
Package docstore answers the chat core's friendship and username queries from MongoDB,
using the collection layout shared with the website backend: a "users" collection keyed
by string ids and a "friendships" collection holding one {first, second} document per
pair, with the lower id stored first.
*/
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"socialchat/internal/pkg/logx"
)

const (
	CollectionNameUsers       = "users"
	CollectionNameFriendships = "friendships"

	connectTimeout = 15 * time.Second
)

var (
	// ErrInvalidID is returned for empty user ids.
	ErrInvalidID = errors.New("invalid user id")

	// ErrUserNotFound is returned when no user document matches the id.
	ErrUserNotFound = errors.New("user not found")
)

// Store is a MongoDB backed friendship oracle and user directory.
type Store struct {
	client      *mongo.Client
	users       *mongo.Collection
	friendships *mongo.Collection
}

// Connect dials uri, verifies the primary is reachable and ensures the friendship index.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		users:       db.Collection(CollectionNameUsers),
		friendships: db.Collection(CollectionNameFriendships),
	}

	if _, err := s.friendships.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "first", Value: 1}, {Key: "second", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure friendship index: %w", err)
	}

	logx.Info("Connected to MongoDB.", "database", database)
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// friendshipFilter builds the lookup for the canonical {first, second} document of a pair.
func friendshipFilter(a, b string) bson.M {
	if a > b {
		a, b = b, a
	}
	return bson.M{"first": a, "second": b}
}

// AreFriends reports whether a and b share a friendship document.
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" {
		return false, ErrInvalidID
	}

	err := s.friendships.FindOne(ctx, friendshipFilter(a, b)).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return true, nil
}

// UsernameFor returns the username stored on the user document.
func (s *Store) UsernameFor(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrInvalidID
	}

	var doc struct {
		Username string `bson:"username"`
	}

	err := s.users.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"username": 1}),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("lookup username: %w", err)
	}
	return doc.Username, nil
}
