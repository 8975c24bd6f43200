package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const defaultConnectTimeout = 20 * time.Second

// setAccessScript writes the access entry only while the refresh entry exists.
const setAccessScript = `
if redis.call("EXISTS", KEYS[2]) == 0 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
return 1
`

var setAccessLua = redis.NewScript(setAccessScript)

// RedisStore keeps entries as plain string keys under prefix.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	keys   Keys
}

// NewRedisStore returns a store writing prefix+keys. An empty prefix writes the bare key names.
func NewRedisStore(client redis.UniversalClient, prefix string, keys Keys) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis store requires a client")
	}
	if !keys.valid() {
		return nil, errors.New("redis store requires distinct access and refresh keys")
	}
	return &RedisStore{redis: client, prefix: prefix, keys: keys}, nil
}

func (s *RedisStore) accessKey() string {
	return s.prefix + s.keys.Access
}

func (s *RedisStore) refreshKey() string {
	return s.prefix + s.keys.Refresh
}

func (s *RedisStore) Get(ctx context.Context) (TokenPair, error) {
	values, err := s.redis.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var pair TokenPair
	if len(values) == 2 {
		pair.Access, _ = values[0].(string)
		pair.Refresh, _ = values[1].(string)
	}
	return pair, nil
}

func (s *RedisStore) Set(ctx context.Context, pair TokenPair) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setOrDel(ctx, pipe, s.accessKey(), pair.Access)
		setOrDel(ctx, pipe, s.refreshKey(), pair.Refresh)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) SetAccess(ctx context.Context, access string) error {
	if access == "" {
		if err := s.redis.Del(ctx, s.accessKey()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	written, err := setAccessLua.Run(ctx, s.redis, []string{s.accessKey(), s.refreshKey()}, access).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if written == 0 {
		return ErrNoSession
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func setOrDel(ctx context.Context, pipe redis.Pipeliner, key, value string) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, 0)
}

// ConnectRedis opens a client and pings it with exponential backoff until timeout elapses.
func ConnectRedis(ctx context.Context, opts *redis.Options, timeout time.Duration) (*redis.Client, error) {
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	client := redis.NewClient(opts)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = timeout / 4
	eb.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return client, nil
}
