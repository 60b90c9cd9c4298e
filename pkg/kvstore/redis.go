package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/merigaumata/authplatform/pkg/apperr"
)

const tracerName = "github.com/merigaumata/authplatform/pkg/kvstore"

// DefaultOpTimeout bounds every redis round trip.
const DefaultOpTimeout = 2 * time.Second

// Cmdable is the subset of the go-redis API the store uses. *redis.Client
// satisfies it; tests substitute a mock.
type Cmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ Cmdable = (*redis.Client)(nil)

// incrScript increments and refreshes the expiry in one step so a counter
// never outlives its window.
const incrScript = `
local n = redis.call("INCR", KEYS[1])
if tonumber(ARGV[1]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// RedisStore implements Store on redis with tracing on every call.
type RedisStore struct {
	cmd     Cmdable
	closer  func() error
	tracer  trace.Tracer
	timeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedis connects to redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(redisOptions(cfg))

	s := NewRedisFromClient(rdb, cfg.OpTimeout)
	s.closer = rdb.Close
	if err := s.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return s, nil
}

// redisOptions bounds socket I/O by the op timeout and lets go-redis honour
// the per-call context deadline.
func redisOptions(cfg RedisConfig) *redis.Options {
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &redis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		DialTimeout:           timeout,
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		ContextTimeoutEnabled: true,
	}
}

// NewRedisFromClient wraps an existing client. A zero timeout uses
// DefaultOpTimeout.
func NewRedisFromClient(cmd Cmdable, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &RedisStore{
		cmd:     cmd,
		tracer:  otel.Tracer(tracerName),
		timeout: timeout,
	}
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, done := s.start(ctx, "Set", key)
	err := s.cmd.Set(ctx, key, value, ttl).Err()
	done(err)
	return wrapError(err, "kvstore: set failed")
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, done := s.start(ctx, "Get", key)
	val, err := s.cmd.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		done(nil)
		return "", ErrNotFound
	}
	done(err)
	if err != nil {
		return "", wrapError(err, "kvstore: get failed")
	}
	return val, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, done := s.start(ctx, "Exists", key)
	n, err := s.cmd.Exists(ctx, key).Result()
	done(err)
	if err != nil {
		return false, wrapError(err, "kvstore: exists failed")
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, done := s.start(ctx, "Delete", key)
	err := s.cmd.Del(ctx, key).Err()
	done(err)
	return wrapError(err, "kvstore: delete failed")
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, done := s.start(ctx, "Incr", key)
	n, err := s.cmd.Eval(ctx, incrScript, []string{key}, ttl.Milliseconds()).Int64()
	done(err)
	if err != nil {
		return 0, wrapError(err, "kvstore: incr failed")
	}
	return n, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, done := s.start(ctx, "Ping", "")
	err := s.cmd.Ping(ctx).Err()
	done(err)
	return wrapError(err, "kvstore: ping failed")
}

// Close releases the connection pool when the store owns it.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// start opens a span and applies the per-operation timeout. The returned
// func ends both.
func (s *RedisStore) start(ctx context.Context, op, key string) (context.Context, func(error)) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := s.tracer.Start(ctx, "kvstore."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", op),
		attribute.String("kvstore.key_prefix", keyPrefix(key)),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		cancel()
	}
}

// keyPrefix keeps token ids and usernames out of span attributes.
func keyPrefix(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i+1]
		}
	}
	return ""
}

// wrapError maps redis failures to a retryable SERVICE_UNAVAILABLE so
// callers fail closed with a uniform code.
func wrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(err, apperr.CodeUnavailable, message)
}
