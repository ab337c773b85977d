// README: Trigger ledger deduplicating surcharge boundaries per (date, slot, boundary).
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kiloadmin/internal/types"
)

// TriggerKey identifies one boundary firing. Date is the local calendar day
// (YYYY-MM-DD) on which the boundary minute occurred.
type TriggerKey struct {
	Date     string
	SlotID   types.ID
	Boundary Boundary
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("surcharge:trigger:%s:%s:%s", k.Date, k.SlotID, k.Boundary)
}

// Ledger records which boundaries have already been applied. Claim returns
// true for exactly one caller per key until the key is released or expires.
type Ledger interface {
	Claim(ctx context.Context, key TriggerKey) (bool, error)
	Release(ctx context.Context, key TriggerKey) error
}

// RedisLedger survives restarts and is shared by every replica.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Claim(ctx context.Context, key TriggerKey) (bool, error) {
	return l.client.SetNX(ctx, key.String(), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *RedisLedger) Release(ctx context.Context, key TriggerKey) error {
	return l.client.Del(ctx, key.String()).Err()
}

// MemoryLedger is process-local; used without Redis and in tests.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, key TriggerKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key.String()
	if _, ok := l.seen[k]; ok {
		return false, nil
	}
	l.seen[k] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, key TriggerKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, key.String())
	return nil
}

func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
