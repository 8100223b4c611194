package adaptive

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// VisitorTracker answers "has this fingerprint scanned this link before?"
// and durably records the first-seen time.
type VisitorTracker interface {
	// CheckAndRecord atomically records the fingerprint if absent. It
	// returns true exactly once per (linkID, fingerprint) pair even under
	// concurrent scans; every later call returns false. Failures surface
	// as *TransientStorageError.
	CheckAndRecord(ctx context.Context, linkID, fingerprint string, now time.Time) (bool, error)
}

// RedisVisitorTracker stores visitor records as "visitor:{linkID}:{fp}"
// keys holding the first-seen timestamp. SETNX gives the atomic
// insert-if-absent, so concurrent first scans cannot both classify as first.
type RedisVisitorTracker struct {
	client    *redis.Client
	retention time.Duration // 0 = keep until pruned
}

// NewRedisVisitorTracker creates a tracker. retention > 0 expires visitor
// records after that horizon (account-level data retention); zero keeps them
// until the link is deleted.
func NewRedisVisitorTracker(client *redis.Client, retention time.Duration) *RedisVisitorTracker {
	return &RedisVisitorTracker{client: client, retention: retention}
}

func visitorKey(linkID, fingerprint string) string {
	return fmt.Sprintf("visitor:%s:%s", linkID, fingerprint)
}

// CheckAndRecord implements VisitorTracker via SETNX.
func (t *RedisVisitorTracker) CheckAndRecord(ctx context.Context, linkID, fingerprint string, now time.Time) (bool, error) {
	created, err := t.client.SetNX(ctx, visitorKey(linkID, fingerprint), now.UTC().Format(time.RFC3339Nano), t.retention).Result()
	if err != nil {
		return false, &TransientStorageError{Op: "check_and_record", Err: err}
	}
	return created, nil
}

// FirstSeenAt returns the recorded first-visit time for a fingerprint, or
// false if the fingerprint has never scanned the link.
func (t *RedisVisitorTracker) FirstSeenAt(ctx context.Context, linkID, fingerprint string) (time.Time, bool, error) {
	value, err := t.client.Get(ctx, visitorKey(linkID, fingerprint)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, &TransientStorageError{Op: "first_seen_at", Err: err}
	}

	firstSeen, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, &TransientStorageError{Op: "first_seen_at", Err: err}
	}
	return firstSeen, true, nil
}

// PruneLink removes all visitor records for a link. Called when the link is
// deleted so fingerprint data does not outlive it.
func (t *RedisVisitorTracker) PruneLink(ctx context.Context, linkID string) (int, error) {
	pattern := fmt.Sprintf("visitor:%s:*", linkID)
	pruned := 0

	iter := t.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Error().Err(err).Str("key", iter.Val()).Msg("Failed to delete visitor record")
			continue
		}
		pruned++
	}
	if err := iter.Err(); err != nil {
		return pruned, &TransientStorageError{Op: "prune_link", Err: err}
	}

	return pruned, nil
}
