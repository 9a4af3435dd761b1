package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LedgerEntryLockKey builds redis keys for ledger entry critical sections.
func LedgerEntryLockKey(entryID uuid.UUID) string {
	return fmt.Sprintf("ledger:entry:%s:lock", entryID)
}

// LedgerLocker serialises mutations of a single ledger entry across API replicas.
type LedgerLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLedgerLocker constructs the locker. A nil client disables locking.
func NewLedgerLocker(client *redis.Client, ttl time.Duration) *LedgerLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &LedgerLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for key. It fails with ErrConflict when another holder
// owns it. The returned release func is always safe to call.
func (l *LedgerLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return func() {}, Unavailable(err)
	}
	if !ok {
		return func() {}, fmt.Errorf("%w: %s is locked", ErrConflict, key)
	}
	return func() {
		// release with a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ErrLockerNotConfigured is returned by Ping when no client is set.
var ErrLockerNotConfigured = errors.New("ledger locker not configured")

// Ping checks redis connectivity.
func (l *LedgerLocker) Ping(ctx context.Context) error {
	if l == nil || l.client == nil {
		return ErrLockerNotConfigured
	}
	return Unavailable(l.client.Ping(ctx).Err())
}
