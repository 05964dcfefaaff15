// Package turnlock serializes streaming turns per conversation: at most one
// turn may be in flight for a given conversation at a time.
package turnlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBusy means a turn is already running for this conversation.
var ErrBusy = errors.New("a turn is already in progress for this conversation")

// Locks are leased, not held forever: a crashed process must not wedge a
// conversation permanently.
const lockTTL = 2 * time.Minute

// Locker acquires a per-conversation lease. The returned release function
// must be called when the turn ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// --- Redis implementation ---

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a Locker backed by Redis SETNX leases, for
// deployments running more than one server instance.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ok, err := l.client.SetNX(ctx, "turnlock:"+key, 1, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		// Release outlives the turn's context on cancellation.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.client.Del(releaseCtx, "turnlock:"+key).Err()
	}, nil
}

// --- In-process fallback ---

type localLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an in-process Locker, used when Redis is not
// configured. Only correct for a single server instance.
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]bool)}
}

func (l *localLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrBusy
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}
