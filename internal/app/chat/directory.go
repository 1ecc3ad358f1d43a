package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

// IdentityResolver authenticates the handshake of a new connection.
type IdentityResolver interface {
	Resolve(r *http.Request) (userID string, err error)
}

// FriendshipOracle answers whether two users are friends. Implementations
// must not depend on the argument order.
type FriendshipOracle interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// UserDirectory resolves display names.
type UserDirectory interface {
	UsernameFor(ctx context.Context, id string) (string, error)
}

// CachedDirectory memoizes successful username lookups for a fixed TTL.
// Friendship answers are never cached; only names are.
type CachedDirectory struct {
	next  UserDirectory
	names *cache.Cache
}

// NewCachedDirectory wraps next with a TTL cache.
func NewCachedDirectory(next UserDirectory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		names: cache.New(ttl, 2*ttl),
	}
}

// UsernameFor returns the cached name or asks the wrapped directory.
func (d *CachedDirectory) UsernameFor(ctx context.Context, id string) (string, error) {
	if name, ok := d.names.Get(id); ok {
		return name.(string), nil
	}

	name, err := d.next.UsernameFor(ctx, id)
	if err != nil {
		return "", err
	}

	d.names.SetDefault(id, name)
	return name, nil
}
