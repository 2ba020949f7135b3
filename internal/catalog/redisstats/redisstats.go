// Package redisstats serves reservation counters kept in Redis hashes, one
// hash per equipment with "waiting" and "active" fields. The reservation
// service owns the writes; Put exists for seeding and tests.
package redisstats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/equipfind/equipfind/internal/catalog"
)

// DefaultPrefix namespaces the per-equipment hashes.
const DefaultPrefix = "equipfind:stats:"

const (
	fieldWaiting = "waiting"
	fieldActive  = "active"
)

// Store reads reservation stats from Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to the Redis instance at url and verifies it answers.
func New(url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

// Stats implements catalog.StatsProvider with one pipelined HMGET per id.
// Equipment without a hash is absent from the result.
func (s *Store) Stats(ctx context.Context, ids []int64) (map[int64]catalog.ReservationStats, error) {
	out := make(map[int64]catalog.ReservationStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.key(id), fieldWaiting, fieldActive)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading reservation stats: %w", err)
	}

	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("reading reservation stats for %d: %w", ids[i], err)
		}
		if vals[0] == nil && vals[1] == nil {
			continue
		}
		out[ids[i]] = catalog.ReservationStats{
			Waiting: toInt(vals[0]),
			Active:  toInt(vals[1]),
		}
	}
	return out, nil
}

func toInt(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Put overwrites the counters of one equipment.
func (s *Store) Put(ctx context.Context, id int64, st catalog.ReservationStats) error {
	if err := s.client.HSet(ctx, s.key(id), fieldWaiting, st.Waiting, fieldActive, st.Active).Err(); err != nil {
		return fmt.Errorf("writing reservation stats for %d: %w", id, err)
	}
	return nil
}

// Delete removes the counters of the given equipment.
func (s *Store) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	return s.client.Del(ctx, keys...).Err()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
