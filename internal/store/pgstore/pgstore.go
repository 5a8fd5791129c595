package pgstore

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errorOperationLock = "pglock"
	errorSubjectSlot   = "slot"
	errorCodeAcquire   = "acquire"
	errorCodeTryLock   = "try_lock"
	errorCodeUnlock    = "unlock"
	slotKeyDelimiter   = "|"

	sqlTryAdvisoryLock = `select pg_try_advisory_lock($1)`
	sqlAdvisoryUnlock  = `select pg_advisory_unlock($1)`
)

// lockConn is the part of a pooled connection the locker uses. Session-level
// advisory locks belong to one connection, so lock and unlock share it.
type lockConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Release()
	// Discard closes the connection so the server drops every lock it still holds.
	Discard(ctx context.Context)
}

type connSource interface {
	acquire(ctx context.Context) (lockConn, error)
}

type poolSource struct {
	pool *pgxpool.Pool
}

func (source poolSource) acquire(ctx context.Context) (lockConn, error) {
	conn, err := source.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pooledConn{Conn: conn}, nil
}

type pooledConn struct {
	*pgxpool.Conn
}

// Discard closes the underlying connection; the pool destroys closed connections on release.
func (conn pooledConn) Discard(ctx context.Context) {
	_ = conn.Conn.Conn().Close(ctx)
	conn.Conn.Release()
}

// AdvisoryLocker implements booking.SlotLocker with Postgres session advisory locks.
type AdvisoryLocker struct {
	source connSource
}

// NewAdvisoryLocker returns a locker backed by a pgx pool.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{source: poolSource{pool: pool}}
}

// LockSlot takes the advisory lock for the slot without waiting.
func (locker *AdvisoryLocker) LockSlot(ctx context.Context, branch booking.BranchID, resource booking.ResourceID, date booking.Date) (func(context.Context) error, error) {
	key := SlotKey(branch, resource, date)
	conn, err := locker.source.acquire(ctx)
	if err != nil {
		return nil, wrapLockError(errorCodeAcquire, fmt.Errorf("%w: %v", booking.ErrUpstreamUnavailable, err))
	}
	var acquired bool
	if err := conn.QueryRow(ctx, sqlTryAdvisoryLock, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, wrapLockError(errorCodeTryLock, fmt.Errorf("%w: %v", booking.ErrUpstreamUnavailable, err))
	}
	if !acquired {
		conn.Release()
		return nil, wrapLockError(errorCodeTryLock, fmt.Errorf("%w: %s %s", booking.ErrSlotLocked, resource, date))
	}
	return func(unlockCtx context.Context) error {
		if _, err := conn.Exec(unlockCtx, sqlAdvisoryUnlock, key); err != nil {
			conn.Discard(unlockCtx)
			return wrapLockError(errorCodeUnlock, err)
		}
		conn.Release()
		return nil
	}, nil
}

// SlotKey hashes branch, resource and date into the 64-bit advisory lock key.
func SlotKey(branch booking.BranchID, resource booking.ResourceID, date booking.Date) int64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(branch.String() + slotKeyDelimiter + resource.String() + slotKeyDelimiter + date.String()))
	return int64(hasher.Sum64())
}

func wrapLockError(code string, err error) error {
	return booking.WrapError(errorOperationLock, errorSubjectSlot, code, err)
}
