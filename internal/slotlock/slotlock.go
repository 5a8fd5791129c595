// Package slotlock serializes reservation commits across processes with a Redis lock.
package slotlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultTTL       = 30 * time.Second
	defaultKeyPrefix = "teetime:slot"
	keyDelimiter     = ":"

	errorOperationLock = "slotlock"
	errorSubjectSlot   = "slot"
	errorCodeAcquire   = "acquire"
	errorCodeRelease   = "release"

	// Deletes the key only while it still holds our token.
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
)

// ErrLockLost is returned on release when the lock expired or was taken over.
var ErrLockLost = errors.New("slot lock expired before release")

// Commander is the subset of a go-redis client the locker needs.
type Commander interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Option customizes a RedisLocker.
type Option func(*RedisLocker)

// WithTTL bounds how long a crashed holder can block a slot.
func WithTTL(ttl time.Duration) Option {
	return func(locker *RedisLocker) {
		if ttl > 0 {
			locker.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(prefix string) Option {
	return func(locker *RedisLocker) {
		if strings.TrimSpace(prefix) != "" {
			locker.prefix = prefix
		}
	}
}

// RedisLocker implements booking.SlotLocker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client Commander
	ttl    time.Duration
	prefix string
	token  func() string
}

// NewRedisLocker builds a locker on client.
func NewRedisLocker(client Commander, options ...Option) *RedisLocker {
	locker := &RedisLocker{client: client, ttl: defaultTTL, prefix: defaultKeyPrefix, token: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(locker)
		}
	}
	return locker
}

// NewClient opens a go-redis client for addr.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Key returns the redis key guarding a slot.
func (locker *RedisLocker) Key(branch booking.BranchID, resource booking.ResourceID, date booking.Date) string {
	return strings.Join([]string{locker.prefix, branch.String(), resource.String(), date.String()}, keyDelimiter)
}

func (locker *RedisLocker) LockSlot(ctx context.Context, branch booking.BranchID, resource booking.ResourceID, date booking.Date) (func(context.Context) error, error) {
	key := locker.Key(branch, resource, date)
	token := locker.token()
	acquired, err := locker.client.SetNX(ctx, key, token, locker.ttl).Result()
	if err != nil {
		return nil, booking.WrapError(errorOperationLock, errorSubjectSlot, errorCodeAcquire,
			fmt.Errorf("%w: %v", booking.ErrUpstreamUnavailable, err))
	}
	if !acquired {
		return nil, booking.WrapError(errorOperationLock, errorSubjectSlot, errorCodeAcquire,
			fmt.Errorf("%w: %s", booking.ErrSlotLocked, key))
	}
	return func(releaseCtx context.Context) error {
		deleted, err := locker.client.Eval(releaseCtx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return booking.WrapError(errorOperationLock, errorSubjectSlot, errorCodeRelease, err)
		}
		if deleted == 0 {
			return booking.WrapError(errorOperationLock, errorSubjectSlot, errorCodeRelease, fmt.Errorf("%w: %s", ErrLockLost, key))
		}
		return nil
	}, nil
}
