package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsWindow = time.Hour

// RedisStats keeps per-destination rolling request/fault/error counts
// in Redis so GET /api/v1/stats can report activity across restarts
// and across multiple lowdown instances sharing one Redis, the way
// the corpus's per-tenant analytics counters work.
type RedisStats struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStats wraps an existing Redis client.
func NewRedisStats(client *redis.Client, timeout time.Duration) *RedisStats {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStats{client: client, timeout: timeout}
}

// RecordRequest increments the rolling request/error counters for
// destination, each bucket expiring after statsWindow of inactivity.
func (s *RedisStats) RecordRequest(destination string, statusCode int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reqKey := "lowdown:stats:req:" + destination
	s.client.Incr(ctx, reqKey)
	s.client.Expire(ctx, reqKey, statsWindow)

	if statusCode >= 400 {
		errKey := "lowdown:stats:err:" + destination
		s.client.Incr(ctx, errKey)
		s.client.Expire(ctx, errKey, statsWindow)
	}
}

// RecordFault increments the rolling fault counter for the given kind
// on destination.
func (s *RedisStats) RecordFault(destination, kind string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := "lowdown:stats:fault:" + destination + ":" + kind
	s.client.Incr(ctx, key)
	s.client.Expire(ctx, key, statsWindow)
}

// DestinationStats is one destination's rolling counters.
type DestinationStats struct {
	Destination string           `json:"destination"`
	Requests    int64            `json:"requests"`
	Errors      int64            `json:"errors"`
	Faults      map[string]int64 `json:"faults"`
}

// FetchStats returns the rolling counters for each of destinations,
// typically the list KnownDestinations reports.
func (s *RedisStats) FetchStats(ctx context.Context, destinations []string) ([]DestinationStats, error) {
	out := make([]DestinationStats, 0, len(destinations))
	for _, dest := range destinations {
		reqVal, _ := s.client.Get(ctx, "lowdown:stats:req:"+dest).Result()
		errVal, _ := s.client.Get(ctx, "lowdown:stats:err:"+dest).Result()

		faultKeys, err := s.client.Keys(ctx, "lowdown:stats:fault:"+dest+":*").Result()
		if err != nil {
			return nil, err
		}
		faults := make(map[string]int64, len(faultKeys))
		prefix := "lowdown:stats:fault:" + dest + ":"
		for _, fk := range faultKeys {
			v, _ := s.client.Get(ctx, fk).Result()
			n, _ := strconv.ParseInt(v, 10, 64)
			faults[fk[len(prefix):]] = n
		}

		reqN, _ := strconv.ParseInt(reqVal, 10, 64)
		errN, _ := strconv.ParseInt(errVal, 10, 64)
		out = append(out, DestinationStats{
			Destination: dest,
			Requests:    reqN,
			Errors:      errN,
			Faults:      faults,
		})
	}
	return out, nil
}

// TrackDestination records dest in the known-destinations set so
// KnownDestinations can report it to a later FetchStats call.
func (s *RedisStats) TrackDestination(dest string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.client.SAdd(ctx, "lowdown:stats:destinations", dest)
}

// KnownDestinations returns every destination TrackDestination has
// recorded.
func (s *RedisStats) KnownDestinations(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, "lowdown:stats:destinations").Result()
}
