package callstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps call state in Redis with a TTL so abandoned calls
// expire on their own.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("callstate: redis client is nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(callID string) string {
	return "callstate:" + callID
}

func (s *RedisStore) Load(ctx context.Context, callID string) (CallState, error) {
	if callID == "" {
		return CallState{}, errors.New("callstate: call_id required")
	}
	raw, err := s.rdb.Get(ctx, sessionKey(callID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return CallState{}, ErrNotFound
		}
		return CallState{}, fmt.Errorf("callstate: load: %w", err)
	}
	var st CallState
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupted record must not wedge the call forever.
		return CallState{}, ErrNotFound
	}
	return st, nil
}

func (s *RedisStore) Save(ctx context.Context, state CallState) error {
	if state.CallID == "" {
		return errors.New("callstate: call_id required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("callstate: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(state.CallID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("callstate: save: %w", err)
	}
	return nil
}
