package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"hash/fnv"
)

// AdvisoryLock is a session-level PostgreSQL advisory lock bound to one
// dedicated connection. The lock is released when Unlock is called or when
// the connection closes.
type AdvisoryLock struct {
	conn *sql.Conn
	key  int64
}

// LockKey derives a stable 64-bit advisory lock key from a name.
func LockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// TryAdvisoryLock attempts pg_try_advisory_lock on a dedicated connection.
// Returns ErrLockHeld without blocking when another session holds the key.
func TryAdvisoryLock(ctx context.Context, db *sql.DB, key int64) (*AdvisoryLock, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}

	if !acquired {
		conn.Close()
		return nil, ErrLockHeld
	}

	return &AdvisoryLock{conn: conn, key: key}, nil
}

// Unlock releases the advisory lock and returns the connection to the pool.
// When the unlock fails the connection is discarded instead, so the session
// and any lock it still holds end with it.
func (l *AdvisoryLock) Unlock(ctx context.Context) error {
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.key); err != nil {
		l.discard()
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return l.conn.Close()
}

func (l *AdvisoryLock) discard() {
	_ = l.conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = l.conn.Close()
}
