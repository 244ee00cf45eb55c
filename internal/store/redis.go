package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CSroseX/lowdown/internal/settings"
)

// redisAdminKey is the hash that holds the mirrored Admin layer, one
// field per setting key, string-encoded the same way headers/env are.
const redisAdminKey = "lowdown:admin"

// RedisMirror persists the Admin layer to a Redis hash so a second
// lowdown instance (or a restarted one) can rehydrate it with
// LoadFromRedis. It never mirrors the one-off queue: spec's
// single-consumption invariant is only meaningful within one process's
// lock, so sharing one-offs across instances would let two processes
// both observe "not yet consumed" and both apply the same rule.
//
// Grounded on the teacher's internal/analytics and internal/ratelimit
// packages, which both keep a *redis.Client around for simple
// key/value bookkeeping; this applies the same shape to Admin-layer
// persistence instead of tenant rate-limit counters.
type RedisMirror struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisMirror wraps an existing Redis client. timeout bounds every
// mirror write so an unreachable Redis never stalls the caller beyond
// a bounded amount (mirror writes already happen off the Store's lock).
func NewRedisMirror(client *redis.Client, timeout time.Duration) *RedisMirror {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisMirror{client: client, timeout: timeout}
}

// SaveAdmin implements Mirror by writing every key of l as a hash field,
// and deleting fields that are newly absent (a Reset that drops a key
// must be reflected, not left stale in Redis).
func (m *RedisMirror) SaveAdmin(l settings.Layer) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, redisAdminKey)
	if len(l) > 0 {
		fields := make(map[string]interface{}, len(l))
		for k, v := range l {
			switch v.Kind() {
			case settings.KindInt:
				fields[string(k)] = v.Int()
			default:
				fields[string(k)] = v.Str()
			}
		}
		pipe.HSet(ctx, redisAdminKey, fields)
	}
	_, _ = pipe.Exec(ctx) // best-effort: a failed mirror write never fails the admin request
}

// LoadFromRedis rehydrates an Admin layer from the mirror, e.g. at
// process startup. Returns an empty layer (not an error) if the hash
// doesn't exist yet.
func LoadFromRedis(ctx context.Context, client *redis.Client) (settings.Layer, error) {
	raw, err := client.HGetAll(ctx, redisAdminKey).Result()
	if err != nil {
		return nil, err
	}
	l := make(settings.Layer, len(raw))
	for name, value := range raw {
		k := settings.Key(name)
		v, ok := settings.ParseValue(value, k)
		if !ok {
			continue
		}
		l[k] = v
	}
	return l, nil
}
