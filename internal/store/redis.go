package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceTTL bounds how stale a mirrored presence key can get if the
// process dies without cleaning up.
const presenceTTL = 5 * time.Minute

// RedisStore mirrors live presence and keeps per-user unread counters.
// It is an optional cache: the hub works without it, the REST surface
// just omits unread counts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// presenceKey returns the key mirroring a user's live presence.
func presenceKey(email string) string {
	return fmt.Sprintf("presence:%s", email)
}

// unreadKey returns the key for a user's unread-counter hash.
// Fields are peer emails, values are counts.
func unreadKey(email string) string {
	return fmt.Sprintf("unread:%s", email)
}

// SetPresence mirrors an online/offline transition. Online writes a
// TTL-bounded key, offline deletes it.
func (s *RedisStore) SetPresence(ctx context.Context, email string, online bool) error {
	key := presenceKey(email)
	if online {
		return s.client.Set(ctx, key, time.Now().UnixMilli(), presenceTTL).Err()
	}
	return s.client.Del(ctx, key).Err()
}

// IsOnline reports whether a presence key exists for the user.
func (s *RedisStore) IsOnline(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, presenceKey(email)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrUnread bumps the recipient's unread counter for the sender.
func (s *RedisStore) IncrUnread(ctx context.Context, to, from string) error {
	return s.client.HIncrBy(ctx, unreadKey(to), from, 1).Err()
}

// ClearUnread resets the owner's unread counter for one peer.
func (s *RedisStore) ClearUnread(ctx context.Context, owner, peer string) error {
	return s.client.HDel(ctx, unreadKey(owner), peer).Err()
}

// UnreadCounts returns the owner's unread counts keyed by peer email.
func (s *RedisStore) UnreadCounts(ctx context.Context, owner string) (map[string]int64, error) {
	fields, err := s.client.HGetAll(ctx, unreadKey(owner)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(fields))
	for peer, raw := range fields {
		var n int64
		if _, err := fmt.Sscan(raw, &n); err != nil {
			continue
		}
		counts[peer] = n
	}
	return counts, nil
}
