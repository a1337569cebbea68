// Package redis implements backends.Backend against Redis, using a single
// embedded Lua script evaluated atomically via EVALSHA: the script is
// pre-loaded by SHA and a NOSCRIPT failure triggers exactly one
// transparent reload before giving up.
package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/windowgate/slidinglimit/backends"
)

//go:embed slidingwindow.lua
var slidingWindowScript string

// Config configures a Redis-backed store adapter.
type Config struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis server password
	DB       int    // Redis database number
	PoolSize int    // Connection pool size
	// RedisURL is a connection string in Redis URL format that provides all
	// connection parameters. When set, the URL supplies the base options and
	// any of Addr, Password, DB and PoolSize that are explicitly set (non-zero)
	// override the matching URL parameter.
	RedisURL string
	// ConnErrorStrings overrides the default connectivity-error patterns
	// used to distinguish Unavailable from operational errors. Nil uses
	// the package default.
	ConnErrorStrings []string
}

// Backend is a Redis-backed implementation of backends.Backend. The
// sliding window itself is kept in Redis as a per-key sorted set, with
// admissions scored by timestamp.
type Backend struct {
	client           redis.UniversalClient
	connErrorStrings []string

	mu  sync.RWMutex
	sha string
}

// New connects to Redis and loads the sliding-window script.
func New(config Config) (*Backend, error) {
	var client redis.UniversalClient

	if config.RedisURL != "" {
		options, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		if config.Addr != "" {
			options.Addr = config.Addr
		}
		if config.Password != "" {
			options.Password = config.Password
		}
		if config.DB != 0 {
			options.DB = config.DB
		}
		if config.PoolSize != 0 {
			options.PoolSize = config.PoolSize
		}
		client = redis.NewClient(options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
			PoolSize: config.PoolSize,
		})
	}

	patterns := config.ConnErrorStrings
	if patterns == nil {
		patterns = connErrorStrings
	}

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, backends.NewHealthError("redis:Ping",
			fmt.Errorf("redis ping failed: %w", err))
	}

	b := &Backend{client: client, connErrorStrings: patterns}
	if err := b.loadScript(context.Background()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return b, nil
}

// NewWithClient wraps a pre-configured, already-connected client.
func NewWithClient(client redis.UniversalClient) (*Backend, error) {
	b := &Backend{client: client, connErrorStrings: connErrorStrings}
	if err := b.loadScript(context.Background()); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Backend) GetClient() redis.UniversalClient {
	return r.client
}

// loadScript loads and caches the sliding-window script's SHA.
func (r *Backend) loadScript(ctx context.Context) error {
	sha, err := r.client.ScriptLoad(ctx, slidingWindowScript).Result()
	if err != nil {
		return r.maybeConnError("redis:ScriptLoad",
			fmt.Errorf("failed to load sliding window script: %w", err))
	}
	r.mu.Lock()
	r.sha = sha
	r.mu.Unlock()
	return nil
}

func (r *Backend) currentSHA() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sha
}

// EvalSlidingWindow implements backends.Backend by invoking the embedded
// script with EVALSHA, reloading the script exactly once if Redis reports
// NOSCRIPT (e.g. after a FLUSHALL or restart).
func (r *Backend) EvalSlidingWindow(ctx context.Context, key string, member string, limit int64, windowMillis int64, nowMillis int64) (backends.Result, error) {
	res, err := r.eval(ctx, key, member, limit, windowMillis, nowMillis)
	if err != nil {
		if strings.Contains(err.Error(), "NOSCRIPT") {
			if loadErr := r.loadScript(ctx); loadErr != nil {
				return backends.Result{}, loadErr
			}
			res, err = r.eval(ctx, key, member, limit, windowMillis, nowMillis)
		}
	}
	if err != nil {
		return backends.Result{}, r.maybeConnError("redis:EvalSlidingWindow",
			fmt.Errorf("failed to evaluate sliding window script: %w", err))
	}
	return res, nil
}

func (r *Backend) eval(ctx context.Context, key, member string, limit, windowMillis, nowMillis int64) (backends.Result, error) {
	raw, err := r.client.EvalSha(ctx, r.currentSHA(), []string{key}, nowMillis, windowMillis, limit, member).Result()
	if err != nil {
		return backends.Result{}, err
	}

	arr, ok := raw.([]any)
	if !ok || len(arr) != 3 {
		return backends.Result{}, fmt.Errorf("unexpected sliding window script result: %T", raw)
	}
	allowed, ok1 := arr[0].(int64)
	count, ok2 := arr[1].(int64)
	retry, ok3 := arr[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return backends.Result{}, fmt.Errorf("unexpected sliding window script result types: %#v", arr)
	}

	return backends.Result{Allowed: allowed == 1, Count: count, RetryAfterMillis: retry}, nil
}

// Delete removes all recorded admissions for key.
func (r *Backend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return r.maybeConnError("redis:Delete", fmt.Errorf("failed to delete key '%s': %w", key, err))
	}
	return nil
}

// Close releases the underlying Redis connection(s).
func (r *Backend) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}

// maybeConnError checks if the error is a connectivity issue and wraps it
// as a health error. Operational errors like NOSCRIPT are not considered
// health errors — they are resolved by loadScript instead.
func (r *Backend) maybeConnError(op string, err error) error {
	return backends.MaybeConnError(op, err, r.connErrorStrings)
}
